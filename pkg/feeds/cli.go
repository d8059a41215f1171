package feeds

import (
	"errors"
	"time"

	"github.com/fleetline/fleetline/pkg/feeds/gtfsrt"
	"github.com/fleetline/fleetline/pkg/feeds/telematics"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"github.com/fleetline/fleetline/pkg/tracking/coordinator"
	"github.com/fleetline/fleetline/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "Bridge external device feeds onto the ingest queue",
		Subcommands: []*cli.Command{
			{
				Name:  "gtfsrt",
				Usage: "poll a GTFS-RT VehiclePositions feed",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					url := util.GetEnvironmentVariable("FLEETLINE_GTFSRT_URL", "")
					tenantID := util.GetEnvironmentVariable("FLEETLINE_GTFSRT_TENANT", "")
					if url == "" || tenantID == "" {
						return errors.New("FLEETLINE_GTFSRT_URL and FLEETLINE_GTFSRT_TENANT must be set")
					}

					interval, err := time.ParseDuration(util.GetEnvironmentVariable("FLEETLINE_GTFSRT_INTERVAL", "30s"))
					if err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(coordinator.FixQueueName)
					if err != nil {
						return err
					}

					poller := &gtfsrt.Poller{
						URL:      url,
						TenantID: tenantID,
						Interval: interval,
					}
					poller.SetupQueue(queue)

					poller.Run()

					return nil
				},
			},
			{
				Name:  "telematics",
				Usage: "subscribe to a telematics provider STOMP topic",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(coordinator.FixQueueName)
					if err != nil {
						return err
					}

					stompClient := telematics.StompClient{
						Address:   util.GetEnvironmentVariable("FLEETLINE_TELEMATICS_STOMP_ADDRESS", "localhost:61613"),
						Username:  util.GetEnvironmentVariable("FLEETLINE_TELEMATICS_STOMP_USERNAME", ""),
						Password:  util.GetEnvironmentVariable("FLEETLINE_TELEMATICS_STOMP_PASSWORD", ""),
						QueueName: util.GetEnvironmentVariable("FLEETLINE_TELEMATICS_STOMP_QUEUE", "/topic/fixes"),

						Queue: queue,
					}

					stompClient.Run()

					return nil
				},
			},
		},
	}
}
