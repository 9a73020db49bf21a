package aggregation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/callqa/callqa/internal/pkg/persistence"
	"github.com/callqa/callqa/internal/pkg/utils"
)

// Granularity defines trend bucketing
type Granularity int

const (
	// Daily buckets by calendar day
	Daily Granularity = iota + 1
	// Weekly buckets by ISO week starting Monday
	Weekly
	// Monthly buckets by calendar month
	Monthly
)

// ParseGranularity maps the query value to Granularity
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	}
	return 0, fmt.Errorf("unknown interval '%s'", s)
}

// Summary is the top level dashboard figure
type Summary struct {
	TotalCalls   int     `json:"totalCalls"`
	AverageScore float64 `json:"averageScore"`
}

// TrendPoint is one time bucket of the score trend
type TrendPoint struct {
	BucketKey    string  `json:"bucket"`
	CallVolume   int     `json:"callVolume"`
	AverageScore float64 `json:"averageScore"`
}

// AgentScore is one leaderboard row
type AgentScore struct {
	AgentID      string  `json:"agentId"`
	Name         string  `json:"name"`
	CallVolume   int     `json:"callVolume"`
	AverageScore float64 `json:"averageScore"`
}

// MakeSummary computes call count and mean overall rating.
// A record without evaluation counts in volume and adds zero to the sum
func MakeSummary(calls []*persistence.CallRecord) *Summary {
	res := &Summary{TotalCalls: len(calls)}
	if len(calls) == 0 {
		return res
	}
	sum := 0.0
	for _, c := range calls {
		sum += overall(c)
	}
	res.AverageScore = round2(sum / float64(len(calls)))
	return res
}

// MakeTrend buckets calls by created time, ascending by bucket start
func MakeTrend(calls []*persistence.CallRecord, g Granularity) []*TrendPoint {
	type acc struct {
		start time.Time
		count int
		sum   float64
	}
	buckets := map[string]*acc{}
	for _, c := range calls {
		start := bucketStart(c.Created, g)
		key := bucketKey(start, g)
		b, ok := buckets[key]
		if !ok {
			b = &acc{start: start}
			buckets[key] = b
		}
		b.count++
		b.sum += overall(c)
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return buckets[keys[i]].start.Before(buckets[keys[j]].start) })
	res := make([]*TrendPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		res = append(res, &TrendPoint{BucketKey: k, CallVolume: b.count,
			AverageScore: round2(b.sum / float64(b.count))})
	}
	return res
}

// MakeLeaderboard ranks the full roster by mean score, zero call agents included
func MakeLeaderboard(calls []*persistence.CallRecord, agents []*persistence.Agent) []*AgentScore {
	byAgent := map[string]*AgentScore{}
	res := make([]*AgentScore, 0, len(agents))
	for _, a := range agents {
		row := &AgentScore{AgentID: a.ID, Name: a.Name}
		byAgent[a.ID] = row
		res = append(res, row)
	}
	sums := map[string]float64{}
	for _, c := range calls {
		id := utils.FromSQLStr(c.AgentID)
		row, ok := byAgent[id]
		if !ok {
			continue
		}
		row.CallVolume++
		sums[id] += overall(c)
	}
	for _, row := range res {
		if row.CallVolume > 0 {
			row.AverageScore = round2(sums[row.AgentID] / float64(row.CallVolume))
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].AverageScore > res[j].AverageScore })
	return res
}

func overall(c *persistence.CallRecord) float64 {
	if c.Evaluation == nil {
		return 0
	}
	return c.Evaluation.OverallRating
}

func bucketStart(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Weekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		// back to Monday
		shift := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -shift)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func bucketKey(start time.Time, g Granularity) string {
	if g == Monthly {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
