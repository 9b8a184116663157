package memstore

import (
	"context"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
)

func (s *Store) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return &models.Settings{ID: models.SiteSettingsID}, nil
	}
	c := *s.settings
	return &c, nil
}

func (s *Store) SaveSettings(_ context.Context, settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *settings
	c.ID = models.SiteSettingsID
	s.settings = &c
	return nil
}

func (s *Store) GetMailSettings(_ context.Context) (*models.MailSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mail == nil {
		return nil, nil
	}
	c := *s.mail
	return &c, nil
}

func (s *Store) UpsertMailSettings(_ context.Context, cfg *models.MailSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	c.ID = models.MailSettingsID
	s.mail = &c
	return nil
}
