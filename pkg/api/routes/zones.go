package routes

import (
	"context"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/tracking/zoneregistry"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/liip/sheriff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var zonesRegistry *zoneregistry.Registry

func ZonesRouter(router fiber.Router, registry *zoneregistry.Registry) {
	zonesRegistry = registry

	router.Get("/", listZones)
	router.Get("/:identifier", getZone)
	router.Post("/", createZone)
	router.Patch("/:identifier", updateZone)
	router.Delete("/:identifier", deleteZone)
}

// createZoneRequest uses pointers for the optional blocks so an absent
// triggers object can be told apart from one with both flags false
type createZoneRequest struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`

	Shape fleetdf.ZoneShape `json:"shape"`

	Scope      fleetdf.ZoneScope      `json:"scope"`
	Triggers   *fleetdf.ZoneTriggers  `json:"triggers"`
	Hysteresis *fleetdf.ZoneHysteresis `json:"hysteresis"`

	Active *bool `json:"active"`
}

func listZones(c *fiber.Ctx) error {
	tenantID, err := tenantFromQuery(c)
	if tenantID == "" {
		return err
	}

	zonesCollection := database.GetCollection("zones")
	cursor, err := zonesCollection.Find(context.Background(), bson.M{"tenantid": tenantID})
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to query zones",
		})
	}

	zones := []fleetdf.Zone{}
	if err := cursor.All(context.Background(), &zones); err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to decode zones",
		})
	}

	zonesReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, zones)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce zones",
		})
	}

	return c.JSON(zonesReduced)
}

func getZone(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	zonesCollection := database.GetCollection("zones")
	var zone *fleetdf.Zone
	zonesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&zone)

	if zone == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Zone matching Zone Identifier",
		})
	}

	zoneReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, zone)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce zone",
		})
	}

	return c.JSON(zoneReduced)
}

func createZone(c *fiber.Ctx) error {
	var request createZoneRequest
	if err := c.BodyParser(&request); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body is not a valid zone",
		})
	}

	if request.TenantID == "" || request.Name == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Zone must have a tenant and a name",
		})
	}

	if err := request.Shape.Validate(); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Zone shape is invalid",
		})
	}

	now := time.Now()
	zone := &fleetdf.Zone{
		PrimaryIdentifier: uuid.New().String(),
		TenantID:          request.TenantID,
		Name:              request.Name,

		Shape:      request.Shape,
		Scope:      request.Scope,
		Hysteresis: request.Hysteresis,

		// Both edges fire unless the request says otherwise
		Triggers: fleetdf.ZoneTriggers{OnEntry: true, OnExit: true},

		Active: true,

		CreationDateTime:     now,
		ModificationDateTime: now,
	}

	if request.Triggers != nil {
		zone.Triggers = *request.Triggers
	}
	if request.Active != nil {
		zone.Active = *request.Active
	}

	zonesCollection := database.GetCollection("zones")
	if _, err := zonesCollection.InsertOne(context.Background(), zone); err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to store zone",
		})
	}

	zonesRegistry.UpsertZone(zone)

	c.SendStatus(fiber.StatusCreated)
	return c.JSON(zone)
}

func updateZone(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	zonesCollection := database.GetCollection("zones")
	var zone *fleetdf.Zone
	zonesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&zone)

	if zone == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Zone matching Zone Identifier",
		})
	}

	var patch fleetdf.Zone
	if err := c.BodyParser(&patch); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Body is not a valid zone patch",
		})
	}

	// Identity fields never change through a patch
	patch.PrimaryIdentifier = ""
	patch.TenantID = ""

	if err := copier.CopyWithOption(zone, &patch, copier.Option{IgnoreEmpty: true}); err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to apply zone patch",
		})
	}

	if err := zone.Shape.Validate(); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Zone shape is invalid",
		})
	}

	zone.ModificationDateTime = time.Now()

	opts := options.Replace().SetUpsert(false)
	if _, err := zonesCollection.ReplaceOne(context.Background(), bson.M{"primaryidentifier": identifier}, zone, opts); err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to store zone",
		})
	}

	zonesRegistry.UpsertZone(zone)

	return c.JSON(zone)
}

func deleteZone(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	zonesCollection := database.GetCollection("zones")
	result, err := zonesCollection.DeleteOne(context.Background(), bson.M{"primaryidentifier": identifier})
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Failed to delete zone",
		})
	}

	if result.DeletedCount == 0 {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Zone matching Zone Identifier",
		})
	}

	zonesRegistry.RemoveZone(identifier)

	return c.JSON(fiber.Map{
		"deleted": identifier,
	})
}
