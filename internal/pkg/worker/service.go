package worker

import (
	"context"
	"fmt"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/messages"
	"github.com/callqa/callqa/internal/pkg/utils"
	"github.com/callqa/callqa/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides failure persistence
type DB interface {
	SaveFailure(ctx context.Context, id, errMsg string) error
}

// Runner processes one call
type Runner interface {
	Run(ctx context.Context, id string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	MsgSender   MsgSender
	DB          DB
	Runner      Runner
	Testing     bool
}

// StartWorkerService starts the event queue listener service to listen for process events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Process: handler.Create(data, handleProcess, handler.DefaultOpts[messages.CallMessage]().
			WithFailure(makeFailureHandler(data)).WithTimeout(time.Minute*30).
			WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Process),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("qa-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleProcess(ctx context.Context, m *messages.CallMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling call")
	err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
		Type:         amessages.InformTypeStarted, At: time.Now()}, messages.Inform)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	if err := data.Runner.Run(ctx, m.ID); err != nil {
		return fmt.Errorf("can't process: %w", err)
	}
	err = data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
		Type:         amessages.InformTypeFinished, At: time.Now()}, messages.Inform)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

// makeFailureHandler marks the record FAILED and informs, no automatic retry.
// A human decides about reprocessing via the retry endpoint
func makeFailureHandler(data *ServiceData) func(context.Context, *messages.CallMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.CallMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		goapp.Log.Info().Str("ID", m.ID).Msg("handling failure")
		if errInt := data.DB.SaveFailure(ctx, m.ID, err.Error()); errInt != nil {
			return false, 0, fmt.Errorf("can't save failure: %w", errInt)
		}
		if errInt := data.MsgSender.SendMessage(ctx, messages.NewCallMessage(m.ID),
			messages.StatusChange); errInt != nil {
			return false, 0, fmt.Errorf("can't send msg: %w", errInt)
		}
		if errInt := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
			QueueMessage: *amessages.NewQueueMessageFromM(&m.QueueMessage),
			Type:         amessages.InformTypeFailed, At: time.Now()}, messages.Inform); errInt != nil {
			return false, 0, fmt.Errorf("can't send msg: %w", errInt)
		}
		return false, 0, nil
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Runner == nil {
		return fmt.Errorf("no Runner")
	}
	return nil
}
