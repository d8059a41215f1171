package dataimporter

import (
	"os"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Load reference datasets into the tracking engine",
		Subcommands: []*cli.Command{
			{
				Name:  "accident-zones",
				Usage: "Import an accident dataset CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path of the CSV file",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					file, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer file.Close()

					return ImportAccidentZones(file)
				},
			},
			{
				Name:  "vehicles",
				Usage: "Import a vehicle registry CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path of the CSV file",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					file, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer file.Close()

					return ImportVehicles(file)
				},
			},
		},
	}
}
