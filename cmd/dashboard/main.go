package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/callqa/callqa/internal/pkg/dashboard"
	"github.com/callqa/callqa/internal/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &dashboard.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	err = dashboard.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
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
\____/\__,_/_/_/\___\_\____/_/

        __           __    __                         __
   ____/ /___ ______/ /_  / /_  ____  ____ __________/ /
  / __  / __ ` + "`" + `/ ___/ __ \/ __ \/ __ \/ __ ` + "`" + `/ ___/ __  /
 / /_/ / /_/ (__  ) / / / /_/ / /_/ / /_/ / /  / /_/ /
 \__,_/\__,_/____/_/ /_/_.___/\____/\__,_/_/   \__,_/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/callqa/callqa"))
}
