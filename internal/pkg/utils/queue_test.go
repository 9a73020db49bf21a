package utils

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type testMsg struct {
	ID string `json:"id"`
}

type testSrv struct{}

func Test_CreateHandler(t *testing.T) {
	var got *testMsg
	h := CreateHandler(&testSrv{}, func(ctx context.Context, m *testMsg, srv *testSrv) error {
		got = m
		return nil
	})
	err := h(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`)})
	assert.Nil(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.ID)
}

func Test_CreateHandler_FailDecode(t *testing.T) {
	called := false
	h := CreateHandler(&testSrv{}, func(ctx context.Context, m *testMsg, srv *testSrv) error {
		called = true
		return nil
	})
	err := h(context.Background(), &gue.Job{Args: []byte(`olia`)})
	assert.NotNil(t, err)
	assert.False(t, called)
}

func Test_CreateHandler_DropsPoisonedMsg(t *testing.T) {
	h := CreateHandler(&testSrv{}, func(ctx context.Context, m *testMsg, srv *testSrv) error {
		return fmt.Errorf("olia err")
	})
	err := h(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 2})
	assert.NotNil(t, err)
	err = h(context.Background(), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 3})
	assert.Nil(t, err)
}
