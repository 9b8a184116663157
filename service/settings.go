package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	settingsCacheTTL          = 5 * time.Second
	DefaultMaintenanceMessage = "We are performing scheduled maintenance. Please check back soon."
	maxMaintenanceMessage     = 500
)

// SettingsService serves the site-wide settings singleton. Reads are cached
// briefly because the maintenance gate asks on every request; Update drops
// the cache immediately.
type SettingsService struct {
	store SettingsStore
	now   func() time.Time

	mu       sync.Mutex
	cached   *models.Settings
	cachedAt time.Time
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store, now: time.Now}
}

func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < settingsCacheTTL {
		out := *s.cached
		s.mu.Unlock()
		return &out, nil
	}
	s.mu.Unlock()

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	c := *settings
	s.cached, s.cachedAt = &c, s.now()
	s.mu.Unlock()
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, adminID primitive.ObjectID, maintenance bool, message string) (*models.Settings, error) {
	message = strings.TrimSpace(message)
	if len(message) > maxMaintenanceMessage {
		return nil, invalid("maintenanceMessage must be at most %d characters", maxMaintenanceMessage)
	}
	if message == "" {
		message = DefaultMaintenanceMessage
	}
	settings := &models.Settings{
		ID:                 models.SiteSettingsID,
		MaintenanceMode:    maintenance,
		MaintenanceMessage: message,
		UpdatedAt:          s.now(),
		UpdatedBy:          adminID,
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return settings, nil
}

// BypassPolicy decides which requests pass the maintenance gate.
type BypassPolicy struct {
	// OpenPaths match exactly; OpenPrefixes match the path start.
	OpenPaths    []string
	OpenPrefixes []string
	// Roles whose authenticated requests always pass.
	Roles []string
}

// DefaultBypassPolicy keeps settings, auth and health reachable and lets
// admins through so they can switch maintenance off again.
func DefaultBypassPolicy() BypassPolicy {
	return BypassPolicy{
		OpenPaths:    []string{"/api/settings", "/health"},
		OpenPrefixes: []string{"/api/auth/"},
		Roles:        []string{models.RoleAdmin},
	}
}

func (p BypassPolicy) Allows(path, role string) bool {
	for _, open := range p.OpenPaths {
		if path == open {
			return true
		}
	}
	for _, prefix := range p.OpenPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
