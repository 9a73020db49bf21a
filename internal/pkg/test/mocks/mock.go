package mocks

import (
	"context"
	"io"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/callqa/callqa/internal/pkg/api"
	"github.com/callqa/callqa/internal/pkg/persistence"
	"github.com/callqa/callqa/internal/pkg/status"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.ReadSeeker, fileSize int64, progressF func(int)) (string, error) {
	args := m.Called(ctx, name, r, fileSize, progressF)
	return args.String(0), args.Error(1)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DB is postgress DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertCall(ctx context.Context, item *persistence.CallRecord) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadCall(ctx context.Context, id string) (*persistence.CallRecord, error) {
	args := m.Called(ctx, id)
	return to[*persistence.CallRecord](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateStatus(ctx context.Context, id string, st status.Status) error {
	args := m.Called(ctx, id, st)
	return args.Error(0)
}

func (m *DB) SaveTranscription(ctx context.Context, id, text string, st status.Status) error {
	args := m.Called(ctx, id, text, st)
	return args.Error(0)
}

func (m *DB) CommitEvaluation(ctx context.Context, id string, ev *api.RubricScore, st status.Status) error {
	args := m.Called(ctx, id, ev, st)
	return args.Error(0)
}

func (m *DB) SaveFailure(ctx context.Context, id, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *DB) ResetCall(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) ListCompletedCalls(ctx context.Context, from, till *time.Time) ([]*persistence.CallRecord, error) {
	args := m.Called(ctx, from, till)
	return to[[]*persistence.CallRecord](args.Get(0)), args.Error(1)
}

func (m *DB) InsertAgent(ctx context.Context, item *persistence.Agent) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) ListAgents(ctx context.Context) ([]*persistence.Agent, error) {
	args := m.Called(ctx)
	return to[[]*persistence.Agent](args.Get(0)), args.Error(1)
}

func (m *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, audioURL string) (string, error) {
	args := m.Called(ctx, audioURL)
	return args.String(0), args.Error(1)
}

// Scorer is rubric evaluation client mock
type Scorer struct{ mock.Mock }

func (m *Scorer) Score(ctx context.Context, transcription string) (*api.RubricScore, error) {
	args := m.Called(ctx, transcription)
	return to[*api.RubricScore](args.Get(0)), args.Error(1)
}

// Runner is workflow mock
type Runner struct{ mock.Mock }

func (m *Runner) Run(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Cleaner is clean mock
type Cleaner struct{ mock.Mock }

func (m *Cleaner) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
