package routes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/tracking/alertlog"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"go.mongodb.org/mongo-driver/bson"
)

var alertsLog *alertlog.Log

func AlertsRouter(router fiber.Router, log *alertlog.Log) {
	alertsLog = log

	router.Get("/", listAlerts)
	router.Get("/:identifier", getAlert)
	router.Post("/:identifier/acknowledge", acknowledgeAlert)
}

func listAlerts(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	query := alertlog.Query{
		TenantID:  tenantID,
		VehicleID: c.Query("vehicle"),
		DriverID:  c.Query("driver"),
		Severity:  fleetdf.AccidentSeverity(c.Query("severity")),
		Status:    fleetdf.AlertStatus(c.Query("status")),
	}

	if fromString := c.Query("from"); fromString != "" {
		query.From, err = time.Parse(time.RFC3339, fromString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter from should be an RFC3339 datetime",
			})
		}
	}
	if toString := c.Query("to"); toString != "" {
		query.To, err = time.Parse(time.RFC3339, toString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter to should be an RFC3339 datetime",
			})
		}
	}

	query.Page, err = strconv.ParseInt(c.Query("page", "0"), 10, 64)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter page should be an integer",
		})
	}
	query.PageSize, err = strconv.ParseInt(c.Query("pageSize", "25"), 10, 64)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter pageSize should be an integer",
		})
	}

	alerts, err := alertsLog.Find(c.Context(), query)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to query alerts",
		})
	}

	groups := []string{"basic"}
	if c.Query("detailed") == "true" {
		groups = append(groups, "detailed")
	}

	alertsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, alerts)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce alerts",
		})
	}

	return c.JSON(alertsReduced)
}

func getAlert(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	alertsCollection := database.GetCollection("alerts")
	var alert *fleetdf.Alert
	alertsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&alert)

	if alert == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Alert matching Alert Identifier",
		})
	}

	alertReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, alert)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce alert",
		})
	}

	return c.JSON(alertReduced)
}

type acknowledgeRequest struct {
	UserID string `json:"userId"`
}

func acknowledgeAlert(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	var request acknowledgeRequest
	if err := c.BodyParser(&request); err != nil || request.UserID == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body must identify the acknowledging user",
		})
	}

	err := alertsLog.Acknowledge(c.Context(), identifier, request.UserID)
	if errors.Is(err, alertlog.ErrAlertNotFound) {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "No active alert matching Alert Identifier",
		})
	}
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to acknowledge alert",
		})
	}

	return c.JSON(fiber.Map{
		"acknowledged": identifier,
	})
}
