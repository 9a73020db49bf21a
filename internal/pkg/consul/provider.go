package consul

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	qapi "github.com/callqa/callqa/internal/pkg/api"
	"github.com/callqa/callqa/internal/pkg/scorer"
	"github.com/hashicorp/consul/api"
	"go.uber.org/multierr"
)

const (
	scoreKey     = "scoreURL"
	modelKey     = "model"
	isHTTPSSLKey = "HTTPSSL"
	priorityKey  = "priority"
)

// Provider keeps track of scorer services registered in consul
type Provider struct {
	consul  *api.Client
	srvName string
	apiKey  string

	lock    *sync.RWMutex
	scorers []*scWrap
}

type scWrap struct {
	real     scorer.Scorer
	srv      string
	key      string
	priority float64
}

// NewProvider creates consul based scorer provider
func NewProvider(cfg *api.Config, srvNameInConsul, apiKey string) (*Provider, error) {
	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if srvNameInConsul == "" {
		return nil, fmt.Errorf("no srv name")
	}
	return newProvider(c, srvNameInConsul, apiKey), nil
}

func newProvider(c *api.Client, srvNameInConsul, apiKey string) *Provider {
	goapp.Log.Info().Str("service", srvNameInConsul).Msg("cfg: srv name in consul")
	return &Provider{consul: c, srvName: srvNameInConsul, apiKey: apiKey,
		lock: &sync.RWMutex{}, scorers: make([]*scWrap, 0)}
}

// Get returns a scorer. If srv matches an active instance, the same one is returned,
// otherwise a random instance weighted by priority is selected
func (c *Provider) Get(srv string, allowNew bool) (scorer.Scorer, string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if !allowNew {
		for _, t := range c.scorers {
			if t.srv == srv {
				return t.real, t.srv, nil
			}
		}
		return nil, "", fmt.Errorf("no active srv `%s`", srv)
	}
	if len(c.scorers) == 0 {
		return nil, "", nil
	}
	for _, t := range c.scorers {
		if t.srv == srv {
			return t.real, t.srv, nil
		}
	}
	if len(c.scorers) == 1 {
		t := c.scorers[0]
		return t.real, t.srv, nil
	}
	i, err := getRandomByPriority(c.scorers)
	if err != nil {
		return nil, "", fmt.Errorf("can't select scorer: %v", err)
	}
	if i < len(c.scorers) {
		t := c.scorers[i]
		return t.real, t.srv, nil
	}
	return nil, "", nil
}

// Score selects an active scorer and forwards the call
func (c *Provider) Score(ctx context.Context, transcription string) (*qapi.RubricScore, error) {
	sc, srv, err := c.Get("", true)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("no active scorer")
	}
	goapp.Log.Debug().Str("service", srv).Msg("selected scorer")
	return sc.Score(ctx, transcription)
}

func getRandomByPriority(wraps []*scWrap) (int, error) {
	prMax := 0.0
	for _, w := range wraps {
		prMax += w.priority
	}
	if prMax < 0.1 {
		return 0, fmt.Errorf("wrong priority sum found %f", prMax)
	}
	rnd := rand.Float64() * prMax
	prMax = 0.0
	for i, w := range wraps {
		prMax += w.priority
		if prMax > rnd {
			return i, nil
		}
	}
	return len(wraps), nil
}

// StartRegistryLoop refreshes known scorers until ctx is done
func (c *Provider) StartRegistryLoop(ctx context.Context, checkInterval time.Duration) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting consul service check every %v", checkInterval)
	res := make(chan struct{}, 2)
	go func() {
		defer close(res)
		c.serviceLoop(ctx, checkInterval)
	}()
	return res, nil
}

func (c *Provider) serviceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	// run on startup
	if err := c.check(ctx); err != nil {
		goapp.Log.Error().Err(err).Send()
	}
	for {
		select {
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case <-ctx.Done():
			ticker.Stop()
			goapp.Log.Info().Msgf("Stopped consul timer service")
			return
		}
	}
}

func (c *Provider) check(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	srvs, _, err := c.consul.Health().Service(c.srvName, "", true, (&api.QueryOptions{}).WithContext(ctxInt))
	if err != nil {
		return fmt.Errorf("can't invoke consul: %v", err)
	}
	return c.updateSrv(srvs)
}

func (c *Provider) updateSrv(srvs []*api.ServiceEntry) error {
	goapp.Log.Info().Msgf("got %d services from consul", len(srvs))
	c.lock.Lock()
	defer c.lock.Unlock()
	ms := map[string]*api.ServiceEntry{}
	for _, s := range srvs {
		ms[key(s)] = s
	}
	new := []*scWrap{}
	for _, s := range c.scorers {
		if v, ok := ms[s.srv]; ok && s.key == fullKey(v) {
			new = append(new, s)
			delete(ms, s.srv)
			continue
		}
		goapp.Log.Warn().Str("service", s.srv).Msgf("dropped scorer")
	}
	if len(new) == len(c.scorers) && len(ms) == 0 {
		return nil
	}
	c.scorers = new
	var err error
	for v, k := range ms {
		sc, errInt := c.newScorer(v, k)
		if errInt != nil {
			err = multierr.Append(err, errInt)
			continue
		}
		c.scorers = append(c.scorers, sc)
		goapp.Log.Info().Str("service", v).Float64("priority", sc.priority).Msg("added scorer")
	}
	return err
}

func (c *Provider) newScorer(v string, s *api.ServiceEntry) (*scWrap, error) {
	sc, err := scorer.NewClient(getUrl(s, scoreKey), c.apiKey, s.Service.Meta[modelKey])
	if err != nil {
		return nil, fmt.Errorf("can't init scorer for %s: %v", v, err)
	}
	priority, err := getPriority(s)
	if err != nil {
		return nil, fmt.Errorf("can't init scorer for %s: %v", v, err)
	}
	res := &scWrap{real: sc, srv: v, key: fullKey(s), priority: priority}
	return res, nil
}

func getPriority(s *api.ServiceEntry) (float64, error) {
	v, ok := s.Service.Meta[priorityKey]
	if !ok {
		return 1, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse priority '%s': %v", v, err)
	}
	if res < 0.5 || res > 50 {
		return 0, fmt.Errorf("wrong priority value '%f', not in [0.5, 50]", res)
	}
	return res, nil
}

func getUrl(s *api.ServiceEntry, key string) string {
	v, ok := s.Service.Meta[key]
	if !ok {
		return ""
	}
	ssl := ""
	if isSSL, ok := s.Service.Meta[isHTTPSSLKey]; ok {
		if boolValue, err := strconv.ParseBool(isSSL); err == nil && boolValue {
			ssl = "s"
		}
	}
	return fmt.Sprintf("http%s://%s:%d/%s", ssl, s.Service.Address, s.Service.Port, v)
}

func key(s *api.ServiceEntry) string {
	return fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port)
}

func fullKey(s *api.ServiceEntry) string {
	res := strings.Builder{}
	for _, key := range [...]string{scoreKey, modelKey, isHTTPSSLKey, priorityKey} {
		v, ok := s.Service.Meta[key]
		if ok {
			res.WriteString(key + ":" + v + ",")
		}
	}
	return res.String()
}
