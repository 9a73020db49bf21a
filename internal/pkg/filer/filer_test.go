package filer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_progressReader(t *testing.T) {
	var got []int
	pr := &progressReader{r: strings.NewReader("0123456789"), total: 10,
		report: func(prc int) { got = append(got, prc) }}
	b := make([]byte, 5)
	_, err := pr.Read(b)
	require.Nil(t, err)
	_, err = pr.Read(b)
	require.Nil(t, err)
	assert.Equal(t, []int{50, 99}, got)
}

func Test_progressReader_CapsAt99(t *testing.T) {
	var got []int
	pr := &progressReader{r: strings.NewReader("0123456789"), total: 10,
		report: func(prc int) { got = append(got, prc) }}
	b := make([]byte, 20)
	_, err := pr.Read(b)
	require.Nil(t, err)
	assert.Equal(t, []int{99}, got)
}

func Test_progressReader_NoTotal(t *testing.T) {
	var got []int
	pr := &progressReader{r: strings.NewReader("0123456789"),
		report: func(prc int) { got = append(got, prc) }}
	b := make([]byte, 20)
	_, err := pr.Read(b)
	require.Nil(t, err)
	assert.Equal(t, 0, len(got))
}

func Test_progressReader_SkipsRepeats(t *testing.T) {
	var got []int
	pr := &progressReader{r: strings.NewReader(strings.Repeat("a", 1000)), total: 1000,
		report: func(prc int) { got = append(got, prc) }}
	b := make([]byte, 1)
	for i := 0; i < 20; i++ {
		_, err := pr.Read(b)
		require.Nil(t, err)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func newTestFiler(putF func(ctx context.Context, name string, r io.Reader, size int64) error) *Filer {
	return &Filer{bucket: "olia", publicURL: "http://srv", attempts: 3,
		delay: time.Millisecond, putF: putF}
}

func Test_SaveFile(t *testing.T) {
	calls := 0
	f := newTestFiler(func(ctx context.Context, name string, r io.Reader, size int64) error {
		calls++
		_, _ = io.Copy(io.Discard, r)
		return nil
	})
	var progress []int
	url, err := f.SaveFile(context.Background(), "calls/1/a.mp3", strings.NewReader("0123456789"),
		10, func(prc int) { progress = append(progress, prc) })
	require.Nil(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "http://srv/olia/calls/1/a.mp3", url)
	require.Greater(t, len(progress), 0)
	assert.Equal(t, 100, progress[len(progress)-1])
	c100 := 0
	for _, p := range progress {
		if p == 100 {
			c100++
		}
	}
	assert.Equal(t, 1, c100)
}

func Test_SaveFile_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	f := newTestFiler(func(ctx context.Context, name string, r io.Reader, size int64) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("olia err")
		}
		_, _ = io.Copy(io.Discard, r)
		return nil
	})
	var progress []int
	url, err := f.SaveFile(context.Background(), "calls/1/a.mp3", strings.NewReader("0123456789"),
		10, func(prc int) { progress = append(progress, prc) })
	require.Nil(t, err)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, url)
	assert.Equal(t, 100, progress[len(progress)-1])
	c100 := 0
	for _, p := range progress {
		if p == 100 {
			c100++
		}
	}
	assert.Equal(t, 1, c100)
}

func Test_SaveFile_FailsAfterAttemptCap(t *testing.T) {
	calls := 0
	f := newTestFiler(func(ctx context.Context, name string, r io.Reader, size int64) error {
		calls++
		return fmt.Errorf("olia err")
	})
	var progress []int
	_, err := f.SaveFile(context.Background(), "calls/1/a.mp3", strings.NewReader("0123456789"),
		10, func(prc int) { progress = append(progress, prc) })
	require.NotNil(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
	require.Greater(t, len(progress), 0)
	assert.Equal(t, 0, progress[len(progress)-1])
	for _, p := range progress {
		assert.NotEqual(t, 100, p)
	}
}

func Test_LoadFile_StatShape(t *testing.T) {
	var f interface{} = &objectFile{}
	_, ok := f.(interface{ Stat() (fs.FileInfo, error) })
	assert.True(t, ok)
}

func Test_objectInfo(t *testing.T) {
	now := time.Now()
	oi := objectInfo{info: minio.ObjectInfo{Key: "calls/1/100_call.mp3", Size: 10, LastModified: now}}
	assert.Equal(t, "100_call.mp3", oi.Name())
	assert.Equal(t, int64(10), oi.Size())
	assert.Equal(t, now, oi.ModTime())
	assert.False(t, oi.IsDir())
}

func Test_linearBackOff(t *testing.T) {
	bo := newLinearBackOff(time.Second)
	assert.Equal(t, time.Second, bo.NextBackOff())
	assert.Equal(t, 2*time.Second, bo.NextBackOff())
	assert.Equal(t, 3*time.Second, bo.NextBackOff())
	bo.Reset()
	assert.Equal(t, time.Second, bo.NextBackOff())
}
