package workflow

import (
	"context"
	"fmt"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/api"
	"github.com/callqa/callqa/internal/pkg/messages"
	"github.com/callqa/callqa/internal/pkg/persistence"
	"github.com/callqa/callqa/internal/pkg/status"
)

// DB provides persistence functionality
type DB interface {
	LoadCall(ctx context.Context, id string) (*persistence.CallRecord, error)
	UpdateStatus(ctx context.Context, id string, st status.Status) error
	SaveTranscription(ctx context.Context, id, text string, st status.Status) error
	CommitEvaluation(ctx context.Context, id string, ev *api.RubricScore, st status.Status) error
}

// Transcriber provides transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Scorer provides rubric evaluation
type Scorer interface {
	Score(ctx context.Context, transcription string) (*api.RubricScore, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Runner moves one call record through the processing pipeline:
// FETCHING -> TRANSCRIBING -> EVALUATING -> UPDATING -> COMPLETED.
// Status is persisted before each step starts, so a restart resumes visibly.
// A returned error means the record must be marked FAILED by the caller
type Runner struct {
	db          DB
	transcriber Transcriber
	scorer      Scorer
	msgSender   MsgSender
}

// NewRunner creates the pipeline runner
func NewRunner(db DB, tr Transcriber, sc Scorer, sender MsgSender) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if tr == nil {
		return nil, fmt.Errorf("no Transcriber")
	}
	if sc == nil {
		return nil, fmt.Errorf("no Scorer")
	}
	if sender == nil {
		return nil, fmt.Errorf("no msg sender")
	}
	return &Runner{db: db, transcriber: tr, scorer: sc, msgSender: sender}, nil
}

// Run processes the call with ID
func (r *Runner) Run(ctx context.Context, id string) error {
	goapp.Log.Info().Str("ID", id).Msg("run workflow")
	rec, err := r.db.LoadCall(ctx, id)
	if err != nil {
		return fmt.Errorf("can't load call: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no call record for '%s'", id)
	}
	if status.From(rec.Status).IsTerminal() {
		goapp.Log.Info().Str("ID", id).Str("status", rec.Status).Msg("already done - skip")
		return nil
	}

	r.moveStatus(ctx, id, status.Fetching)
	if rec.StorageURL == "" {
		return fmt.Errorf("no storage URL for '%s'", id)
	}

	r.moveStatus(ctx, id, status.Transcribing)
	text, err := r.transcriber.Transcribe(ctx, rec.StorageURL)
	if err != nil {
		return fmt.Errorf("can't transcribe: %w", err)
	}

	// transcription write failure is not fatal - the text travels in memory to the scorer
	if err := r.db.SaveTranscription(ctx, id, text, status.Evaluating); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", id).Msg("can't persist transcription")
	} else {
		r.notify(ctx, id)
	}

	ev, err := r.scorer.Score(ctx, text)
	if err != nil {
		return fmt.Errorf("can't score: %w", err)
	}

	r.moveStatus(ctx, id, status.Updating)
	// evaluation and COMPLETED land in one write, this one must not be lost
	if err := r.db.CommitEvaluation(ctx, id, ev, status.Completed); err != nil {
		return fmt.Errorf("can't commit evaluation: %w", err)
	}
	r.notify(ctx, id)
	goapp.Log.Info().Str("ID", id).Msg("workflow completed")
	return nil
}

// moveStatus persists intermediate status and informs subscribers.
// Failures here are logged only - the pipeline itself moves on
func (r *Runner) moveStatus(ctx context.Context, id string, st status.Status) {
	goapp.Log.Info().Str("ID", id).Str("status", st.String()).Msg("move status")
	if err := r.db.UpdateStatus(ctx, id, st); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", id).Str("status", st.String()).Msg("can't update status")
		return
	}
	r.notify(ctx, id)
}

func (r *Runner) notify(ctx context.Context, id string) {
	if err := r.msgSender.SendMessage(ctx, messages.NewCallMessage(id), messages.StatusChange); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", id).Msg("can't send status change msg")
	}
}
