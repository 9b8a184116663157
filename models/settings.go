package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettingsID is the fixed _id of the settings singleton document.
const SiteSettingsID = "site"

type Settings struct {
	ID                 string             `bson:"_id" json:"-"`
	MaintenanceMode    bool               `bson:"maintenanceMode" json:"maintenanceMode"`
	MaintenanceMessage string             `bson:"maintenanceMessage" json:"maintenanceMessage"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
	UpdatedBy          primitive.ObjectID `bson:"updatedBy,omitempty" json:"-"`
}
