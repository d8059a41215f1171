package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"google.golang.org/api/option"
)

type PushManager struct {
	FirebaseApp *firebase.App
}

func (m *PushManager) Setup() error {
	fireBaseAuthKey := os.Getenv("FLEETLINE_FIREBASE_SERVICE_ACCOUNT")

	decodedKey, err := base64.StdEncoding.DecodeString(fireBaseAuthKey)
	if err != nil {
		return err
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	app, err := firebase.NewApp(context.Background(), nil, opts...)
	if err != nil {
		return err
	}

	m.FirebaseApp = app

	return nil
}

// SendAlertPush notifies every registered device of the alert's tenant
func (m *PushManager) SendAlertPush(alert *fleetdf.Alert) error {
	targetsCollection := database.GetCollection("user_push_notification_target")

	cursor, err := targetsCollection.Find(context.Background(), bson.M{
		"tenantid": alert.TenantID,
	})
	if err != nil {
		return err
	}

	targets := []fleetdf.UserPushNotificationTarget{}
	if err := cursor.All(context.Background(), &targets); err != nil {
		return err
	}

	if len(targets) == 0 {
		return nil
	}

	fcmClient, err := m.FirebaseApp.Messaging(context.Background())
	if err != nil {
		return err
	}

	title, body := alertNotificationText(alert)

	for _, target := range targets {
		_, err := fcmClient.Send(context.Background(), &messaging.Message{
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Token: target.PushNotificationToken,
		})
		if err != nil {
			log.Error().Err(err).Str("target", target.UserID).Msg("Failed to send push notification")
			continue
		}

		log.Info().Str("target", target.UserID).Str("alert", alert.PrimaryIdentifier).Msg("Sent Push Notification")
	}

	return nil
}

func alertNotificationText(alert *fleetdf.Alert) (string, string) {
	switch alert.Kind {
	case fleetdf.AlertKindGeofenceEntry:
		return "Geofence entry",
			fmt.Sprintf("Vehicle %s entered %s", alert.VehicleID, alert.ZoneName)
	case fleetdf.AlertKindGeofenceExit:
		return "Geofence exit",
			fmt.Sprintf("Vehicle %s left %s", alert.VehicleID, alert.ZoneName)
	case fleetdf.AlertKindAccidentProximity:
		return "Accident nearby",
			fmt.Sprintf("Vehicle %s is near a %s severity accident area", alert.VehicleID, alert.Severity)
	}

	return "Fleet alert", fmt.Sprintf("Vehicle %s raised an alert", alert.VehicleID)
}
