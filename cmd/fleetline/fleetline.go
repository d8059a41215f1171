package main

import (
	"os"
	"time"

	"github.com/fleetline/fleetline/pkg/dataimporter"
	"github.com/fleetline/fleetline/pkg/dbwatch"
	"github.com/fleetline/fleetline/pkg/feeds"
	"github.com/fleetline/fleetline/pkg/notify"
	"github.com/fleetline/fleetline/pkg/tracking"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("FLEETLINE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("FLEETLINE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "fleetline",
		Description: "Single binary of truth for Fleetline - runs all the services",

		Commands: []*cli.Command{
			tracking.RegisterCLI(),
			notify.RegisterCLI(),
			dbwatch.RegisterCLI(),
			feeds.RegisterCLI(),
			dataimporter.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
