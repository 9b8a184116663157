package store

import (
	"context"
	"errors"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetSettings returns the site settings, or defaults if none were saved yet.
func (db *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	err := db.Settings().FindOne(ctx, bson.M{"_id": models.SiteSettingsID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.Settings{ID: models.SiteSettingsID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) SaveSettings(ctx context.Context, s *models.Settings) error {
	s.ID = models.SiteSettingsID
	set := bson.M{
		"maintenanceMode":    s.MaintenanceMode,
		"maintenanceMessage": s.MaintenanceMessage,
		"updatedAt":          s.UpdatedAt,
		"updatedBy":          s.UpdatedBy,
	}
	opts := options.Update().SetUpsert(true)
	_, err := db.Settings().UpdateOne(ctx, bson.M{"_id": models.SiteSettingsID}, bson.M{"$set": set}, opts)
	return err
}

// GetMailSettings returns the store SMTP settings, or nil if none exist.
func (db *DB) GetMailSettings(ctx context.Context) (*models.MailSettings, error) {
	var cfg models.MailSettings
	err := db.Settings().FindOne(ctx, bson.M{"_id": models.MailSettingsID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpsertMailSettings creates or updates the store SMTP settings.
func (db *DB) UpsertMailSettings(ctx context.Context, cfg *models.MailSettings) error {
	set := bson.M{
		"host":        cfg.Host,
		"port":        cfg.Port,
		"username":    cfg.Username,
		"password":    cfg.Password,
		"from":        cfg.From,
		"adminNotify": cfg.AdminNotify,
		"updatedAt":   cfg.UpdatedAt,
	}
	opts := options.Update().SetUpsert(true)
	_, err := db.Settings().UpdateOne(ctx, bson.M{"_id": models.MailSettingsID}, bson.M{"$set": set}, opts)
	return err
}
