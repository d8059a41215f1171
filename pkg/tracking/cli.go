package tracking

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetline/fleetline/pkg/api"
	"github.com/fleetline/fleetline/pkg/consumer"
	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/dbwatch"
	"github.com/fleetline/fleetline/pkg/elastic_client"
	"github.com/fleetline/fleetline/pkg/notify"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"github.com/fleetline/fleetline/pkg/tracking/alertlog"
	"github.com/fleetline/fleetline/pkg/tracking/bus"
	"github.com/fleetline/fleetline/pkg/tracking/coordinator"
	"github.com/fleetline/fleetline/pkg/tracking/eta"
	"github.com/fleetline/fleetline/pkg/tracking/positionstore"
	"github.com/fleetline/fleetline/pkg/tracking/telemetry"
	"github.com/fleetline/fleetline/pkg/tracking/zoneregistry"
	"github.com/fleetline/fleetline/pkg/util"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const registryReloadInterval = 5 * time.Minute

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Realtime tracking engine ingests fixes and evaluates spatial alerts",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the tracking engine",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					coordinator.CreateVehicleExistenceCache()

					registry := zoneregistry.NewRegistry()
					if err := registry.Load(context.Background()); err != nil {
						return err
					}
					go reloadRegistry(registry)
					go followRegistryRefresh(registry)

					positions := positionstore.NewStore(redis_client.Client, 0)
					eventBus := bus.NewBus(redis_client.Client)
					alertLog := alertlog.NewLog()

					evaluator, err := telemetry.NewDefaultEvaluator()
					if err != nil {
						return err
					}

					ingestCoordinator := coordinator.NewCoordinator(positions, registry, alertLog, eventBus, evaluator)
					ingestCoordinator.OnAlertLogged = notify.EnqueueAlert

					fixConsumer := consumer.RedisConsumer{
						QueueName:       coordinator.FixQueueName,
						NumberConsumers: 5,
						BatchSize:       200,
						Timeout:         1 * time.Second,
						Consumer:        coordinator.NewFixBatchConsumer(ingestCoordinator),
					}
					fixConsumer.Setup()

					retryConsumer := consumer.RedisConsumer{
						QueueName:       alertlog.RetryQueueName,
						NumberConsumers: 1,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        alertlog.NewRetryBatchConsumer(alertLog),
					}
					retryConsumer.Setup()

					listen := util.GetEnvironmentVariable("FLEETLINE_TRACKER_LISTEN", ":8080")

					return api.SetupServer(listen, api.Dependencies{
						Coordinator: ingestCoordinator,
						Positions:   positions,
						Registry:    registry,
						Alerts:      alertLog,
						ETA:         eta.NewService(positions),
					})
				},
			},
			{
				Name:  "watch",
				Usage: "follow the mirrored event stream and print every event",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					pubsub := redis_client.Client.PSubscribe(context.Background(), "fleetline:*")
					defer pubsub.Close()

					go func() {
						for message := range pubsub.Channel() {
							pretty.Println(message.Channel, message.Payload)
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal

					return nil
				},
			},
		},
	}
}

func reloadRegistry(registry *zoneregistry.Registry) {
	ticker := time.NewTicker(registryReloadInterval)

	for range ticker.C {
		if err := registry.Load(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to reload zone registry")
		}
	}
}

// followRegistryRefresh reloads the registry whenever dbwatch reports a change
// to the zone collections
func followRegistryRefresh(registry *zoneregistry.Registry) {
	pubsub := redis_client.Client.Subscribe(context.Background(), dbwatch.RegistryRefreshChannel)
	defer pubsub.Close()

	for range pubsub.Channel() {
		if err := registry.Load(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to reload zone registry")
		}
	}
}
