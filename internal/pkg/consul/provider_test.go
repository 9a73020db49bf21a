package consul

import (
	"fmt"
	"testing"

	"github.com/callqa/callqa/internal/pkg/scorer"
	"github.com/callqa/callqa/internal/pkg/test/mocks"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
)

func newMeta() map[string]string {
	return map[string]string{"scoreURL": "v1/chat/completions", "model": "gpt-4o-mini"}
}

func newEntry(port int, meta map[string]string) *api.ServiceEntry {
	return &api.ServiceEntry{Service: &api.AgentService{Service: "olia", Port: port,
		Address: "srv", Meta: meta}}
}

func Test_Get_empty(t *testing.T) {
	p := newProvider(nil, "olia", "")
	sc, name, err := p.Get("olia", true)
	assert.Nil(t, sc)
	assert.Equal(t, "", name)
	assert.Nil(t, err)
	sc, name, err = p.Get("olia", false)
	assert.Nil(t, sc)
	assert.Equal(t, "", name)
	assert.NotNil(t, err)
}

func Test_Get_existing(t *testing.T) {
	p := newProvider(nil, "olia", "")
	sc := &mocks.Scorer{}
	p.scorers = append(p.scorers, &scWrap{real: sc, srv: "olia", priority: 1})
	rsc, name, err := p.Get("olia", true)
	assert.Equal(t, sc, rsc)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rsc, name, err = p.Get("olia1", true)
	assert.Equal(t, sc, rsc)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rsc, name, err = p.Get("olia", false)
	assert.Equal(t, sc, rsc)
	assert.Equal(t, "olia", name)
	assert.Nil(t, err)
	rsc, name, err = p.Get("olia1", false)
	assert.Nil(t, rsc)
	assert.Equal(t, "", name)
	assert.NotNil(t, err)
}

func Test_Get_by_name(t *testing.T) {
	p := newProvider(nil, "olia", "")
	sc := &mocks.Scorer{}
	sc1 := &mocks.Scorer{}
	p.scorers = append(p.scorers, &scWrap{real: sc, srv: "olia", priority: 1})
	p.scorers = append(p.scorers, &scWrap{real: sc1, srv: "olia1", priority: 1})
	rsc, name, _ := p.Get("olia", true)
	testAssertEqPtr(t, sc, rsc)
	assert.Equal(t, "olia", name)
	rsc, name, _ = p.Get("olia1", true)
	testAssertEqPtr(t, sc1, rsc)
	assert.Equal(t, "olia1", name)
}

func Test_Get_selects(t *testing.T) {
	p := newProvider(nil, "olia", "")
	sc := &mocks.Scorer{}
	sc1 := &mocks.Scorer{}
	p.scorers = append(p.scorers, &scWrap{real: sc, srv: "olia", priority: 1})
	p.scorers = append(p.scorers, &scWrap{real: sc1, srv: "olia1", priority: 1})
	for i := 0; i < 10; i++ {
		rsc, name, err := p.Get("", true)
		assert.Nil(t, err)
		assert.NotNil(t, rsc)
		assert.Contains(t, []string{"olia", "olia1"}, name)
	}
}

func testAssertEqPtr(t *testing.T, sc, exp scorer.Scorer) {
	t.Helper()
	assert.Equal(t, fmt.Sprintf("%p", sc), fmt.Sprintf("%p", exp))
}

func Test_getRandomByPriority(t *testing.T) {
	wraps := []*scWrap{{priority: 50}, {priority: 0.5}}
	counts := map[int]int{}
	for i := 0; i < 100; i++ {
		idx, err := getRandomByPriority(wraps)
		assert.Nil(t, err)
		counts[idx]++
	}
	assert.Greater(t, counts[0], counts[1])
}

func Test_getRandomByPriority_Fails(t *testing.T) {
	_, err := getRandomByPriority([]*scWrap{{priority: 0}, {priority: 0}})
	assert.NotNil(t, err)
}

func TestProvider_updateSrv_no_meta(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{})})
	assert.NotNil(t, err)
}

func TestProvider_updateSrv_adds(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
}

func TestProvider_updateSrv_addsSame(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
	cp := p.scorers[0]
	err = p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
	assert.Equal(t, cp, p.scorers[0])
}

func TestProvider_updateSrv_updates(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
	cp := p.scorers[0]
	meta := newMeta()
	meta["model"] = "gpt-4o"
	err = p.updateSrv([]*api.ServiceEntry{newEntry(80, meta)})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
	assert.NotEqual(t, cp, p.scorers[0])
}

func TestProvider_updateSrv_addsTwo(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.scorers))
	err = p.updateSrv([]*api.ServiceEntry{newEntry(81, newMeta()), newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.scorers))
}

func TestProvider_updateSrv_drops(t *testing.T) {
	p := newProvider(nil, "olia", "")
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, newMeta()), newEntry(81, newMeta()),
		newEntry(82, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(p.scorers))
	err = p.updateSrv([]*api.ServiceEntry{newEntry(82, newMeta()), newEntry(80, newMeta())})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.scorers))
}

func TestProvider_updateSrv_wrongPriority(t *testing.T) {
	p := newProvider(nil, "olia", "")
	meta := newMeta()
	meta["priority"] = "olia"
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, meta)})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(p.scorers))
}

func Test_getUrl(t *testing.T) {
	meta := newMeta()
	assert.Equal(t, "http://srv:80/v1/chat/completions", getUrl(newEntry(80, meta), "scoreURL"))
	meta["HTTPSSL"] = "true"
	assert.Equal(t, "https://srv:80/v1/chat/completions", getUrl(newEntry(80, meta), "scoreURL"))
	assert.Equal(t, "", getUrl(newEntry(80, meta), "olia"))
}

func Test_getPriority(t *testing.T) {
	tests := []struct {
		name    string
		v       string
		want    float64
		wantErr bool
	}{
		{name: "default", v: "", want: 1},
		{name: "value", v: "2.5", want: 2.5},
		{name: "min", v: "0.5", want: 0.5},
		{name: "max", v: "50", want: 50},
		{name: "too small", v: "0.4", wantErr: true},
		{name: "too big", v: "51", wantErr: true},
		{name: "not a number", v: "olia", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := newMeta()
			if tt.v != "" {
				meta["priority"] = tt.v
			}
			got, err := getPriority(newEntry(80, meta))
			if (err != nil) != tt.wantErr {
				t.Errorf("getPriority() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.InDelta(t, tt.want, got, 0.0001)
			}
		})
	}
}
