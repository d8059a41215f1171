package api

import (
	"github.com/fleetline/fleetline/pkg/api/routes"
	"github.com/fleetline/fleetline/pkg/tracking/alertlog"
	"github.com/fleetline/fleetline/pkg/tracking/coordinator"
	"github.com/fleetline/fleetline/pkg/tracking/eta"
	"github.com/fleetline/fleetline/pkg/tracking/positionstore"
	"github.com/fleetline/fleetline/pkg/tracking/zoneregistry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Coordinator *coordinator.Coordinator
	Positions   *positionstore.Store
	Registry    *zoneregistry.Registry
	Alerts      *alertlog.Log
	ETA         *eta.Service
}

func SetupServer(listen string, deps Dependencies) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)
	group.Get("metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.TrackingRouter(group.Group("/tracking"), deps.Coordinator, deps.Positions, deps.ETA)
	routes.ZonesRouter(group.Group("/zones", EnsureValidToken()), deps.Registry)
	routes.AlertsRouter(group.Group("/alerts"), deps.Alerts)

	return webApp.Listen(listen)
}
