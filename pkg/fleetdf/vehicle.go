package fleetdf

import "time"

// Vehicle is the minimal registration record the tracking engine validates
// incoming fixes against. Full vehicle CRUD lives outside this service.
type Vehicle struct {
	PrimaryIdentifier string `groups:"basic" json:"vehicleId" bson:"primaryidentifier"`
	TenantID          string `groups:"basic" json:"tenantId" bson:"tenantid"`

	Registration string `groups:"basic" json:"registration,omitempty" bson:"registration,omitempty"`
	Active       bool   `groups:"basic" json:"active" bson:"active"`

	CreationDateTime time.Time `groups:"detailed" json:"createdAt" bson:"creationdatetime"`
}

// UserPushNotificationTarget maps an operator account to a device push token
type UserPushNotificationTarget struct {
	UserID   string `bson:"userid"`
	TenantID string `bson:"tenantid"`

	PushNotificationToken string `bson:"pushnotificationtoken"`
}
