package routes

import (
	"errors"
	"strconv"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/tracking/coordinator"
	"github.com/fleetline/fleetline/pkg/tracking/eta"
	"github.com/fleetline/fleetline/pkg/tracking/positionstore"
	"github.com/gofiber/fiber/v2"
)

var (
	trackingCoordinator *coordinator.Coordinator
	trackingPositions   *positionstore.Store
	trackingETA         *eta.Service
)

func TrackingRouter(router fiber.Router, ingestCoordinator *coordinator.Coordinator, positions *positionstore.Store, etaService *eta.Service) {
	trackingCoordinator = ingestCoordinator
	trackingPositions = positions
	trackingETA = etaService

	router.Post("/fixes", ingestFix)
	router.Post("/telemetry", ingestTelemetry)

	router.Get("/vehicles/:identifier/position", getVehiclePosition)
	router.Get("/vehicles/:identifier/history", getVehicleHistory)
	router.Get("/vehicles/:identifier/eta", getVehicleETA)

	router.Get("/shipments/:identifier/position", getShipmentPosition)
	router.Get("/shipments/:identifier/eta", getShipmentETA)
}

func ingestFix(c *fiber.Ctx) error {
	var fix *fleetdf.Fix
	if err := c.BodyParser(&fix); err != nil || fix == nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body is not a valid fix",
		})
	}

	outcome := trackingCoordinator.Ingest(c.Context(), fix)

	switch outcome.Status {
	case coordinator.StatusAccepted, coordinator.StatusStaleIgnored:
		return c.JSON(outcome)
	default:
		if outcome.Reason == "unknown_vehicle" {
			c.SendStatus(fiber.StatusNotFound)
		} else {
			c.SendStatus(fiber.StatusBadRequest)
		}
		return c.JSON(outcome)
	}
}

func ingestTelemetry(c *fiber.Ctx) error {
	var payload *fleetdf.Telemetry
	if err := c.BodyParser(&payload); err != nil || payload == nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body is not a valid telemetry payload",
		})
	}

	if payload.TenantID == "" || payload.VehicleID == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Telemetry payload must identify a tenant and a vehicle",
		})
	}

	alarms := trackingCoordinator.IngestTelemetry(c.Context(), payload)

	return c.JSON(fiber.Map{
		"alarms": alarms,
	})
}

func tenantFromQuery(c *fiber.Ctx) (string, error) {
	tenantID := c.Query("tenant")
	if tenantID == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return "", c.JSON(fiber.Map{
			"error": "Parameter tenant must be provided",
		})
	}

	return tenantID, nil
}

func getVehiclePosition(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	fix, err := trackingPositions.GetLatest(c.Context(), tenantID, c.Params("identifier"))
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to read the position store",
		})
	}

	if fix == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No recent position for this vehicle",
		})
	}

	return c.JSON(fix)
}

func getShipmentPosition(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	fix, err := trackingPositions.GetLatestForShipment(c.Context(), tenantID, c.Params("identifier"))
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to read the position store",
		})
	}

	if fix == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No recent position for this shipment",
		})
	}

	return c.JSON(fix)
}

func getVehicleHistory(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	var from, to time.Time
	if fromString := c.Query("from"); fromString != "" {
		from, err = time.Parse(time.RFC3339, fromString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter from should be an RFC3339 datetime",
			})
		}
	}
	if toString := c.Query("to"); toString != "" {
		to, err = time.Parse(time.RFC3339, toString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter to should be an RFC3339 datetime",
			})
		}
	}

	limit, err := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter limit should be an integer",
		})
	}

	fixes, err := trackingPositions.QueryHistory(c.Context(), tenantID, c.Params("identifier"), from, to, limit)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to query the track history",
		})
	}

	return c.JSON(fixes)
}

func destinationFromQuery(c *fiber.Ctx) (*fleetdf.Coordinates, error) {
	latitude, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	longitude, lonErr := strconv.ParseFloat(c.Query("lon"), 64)

	destination := &fleetdf.Coordinates{Latitude: latitude, Longitude: longitude}

	if latErr != nil || lonErr != nil || !destination.Valid() {
		c.SendStatus(fiber.StatusBadRequest)
		return nil, c.JSON(fiber.Map{
			"error": "Parameters lat and lon must be valid coordinates",
		})
	}

	return destination, nil
}

func getVehicleETA(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	destination, err := destinationFromQuery(c)
	if destination == nil {
		return err
	}

	estimate, err := trackingETA.EstimateForVehicle(c.Context(), tenantID, c.Params("identifier"), *destination)

	return etaResponse(c, estimate, err)
}

func getShipmentETA(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	destination, err := destinationFromQuery(c)
	if destination == nil {
		return err
	}

	estimate, err := trackingETA.EstimateForShipment(c.Context(), tenantID, c.Params("identifier"), *destination)

	return etaResponse(c, estimate, err)
}

func etaResponse(c *fiber.Ctx, estimate *eta.Estimate, err error) error {
	if errors.Is(err, eta.ErrNoLocation) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No recent position to estimate from",
		})
	}
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to calculate the estimate",
		})
	}

	return c.JSON(estimate)
}
