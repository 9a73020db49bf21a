package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/consul"
	"github.com/callqa/callqa/internal/pkg/postgres"
	"github.com/callqa/callqa/internal/pkg/scorer"
	"github.com/callqa/callqa/internal/pkg/transcriber"
	"github.com/callqa/callqa/internal/pkg/worker"
	"github.com/callqa/callqa/internal/pkg/workflow"
	capi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = cfg.GetInt("worker.count")
	data.Testing = cfg.GetBool("worker.testing")
	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	data.MsgSender = sender
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	trans, err := transcriber.NewClient(cfg.GetString("transcriber.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	sc, err := initScorer(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init scorer")
	}

	data.Runner, err = workflow.NewRunner(db, trans, sc, sender)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init runner")
	}

	printBanner()

	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

// initScorer wires consul discovery when configured, direct client otherwise
func initScorer(ctx context.Context, cfg *viper.Viper) (workflow.Scorer, error) {
	consulAddr := cfg.GetString("consul.url")
	if consulAddr != "" {
		cCfg := capi.DefaultConfig()
		cCfg.Address = consulAddr
		provider, err := consul.NewProvider(cCfg, cfg.GetString("consul.service"), cfg.GetString("scorer.apiKey"))
		if err != nil {
			return nil, err
		}
		interval := cfg.GetDuration("consul.checkInterval")
		if interval <= 0 {
			interval = time.Second * 30
		}
		if _, err := provider.StartRegistryLoop(ctx, interval); err != nil {
			return nil, err
		}
		return provider, nil
	}
	return scorer.NewClient(cfg.GetString("scorer.url"), cfg.GetString("scorer.apiKey"),
		cfg.GetString("scorer.model"))
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   ______      ____________  ___
  / ____/___ _/ / / ____/ / / / |
 / /   / __ ` + "`" + `/ / / /   / / / / d|
/ /___/ /_/ / / / /___/ /_/ / Q/
\____/\__,_/_/_/\___\_\____/_/   v: %s

                      __
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /
|__/|__/\____/_/  /_/|_|\___/_/

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/callqa/callqa"))
}
