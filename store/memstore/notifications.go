package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertNotification(_ context.Context, n *models.Notification) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.notifications[c.ID] = &c
	return c.ID, nil
}

func (s *Store) NotificationByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (s *Store) MarkNotificationSent(_ context.Context, id primitive.ObjectID, attempts int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok {
		n.Status = models.NotificationSent
		n.Attempts = attempts
		n.SentAt = &at
		n.LastError = ""
	}
	return nil
}

func (s *Store) MarkNotificationFailed(_ context.Context, id primitive.ObjectID, attempts int, lastErr string, next time.Time, status models.NotificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok {
		n.Status = status
		n.Attempts = attempts
		n.LastError = lastErr
		n.NextAttemptAt = next
	}
	return nil
}

func (s *Store) ResetNotification(_ context.Context, id primitive.ObjectID, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Status != models.NotificationDead {
		return store.ErrNotFound
	}
	n.Status = models.NotificationPending
	n.Attempts = 0
	n.NextAttemptAt = next
	return nil
}

func (s *Store) PendingNotifications(ctx context.Context) ([]models.Notification, error) {
	return s.ListNotifications(ctx, string(models.NotificationPending), 0)
}

func (s *Store) ListNotifications(_ context.Context, status string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if status == "" || string(n.Status) == status {
			out = append(out, *n)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
