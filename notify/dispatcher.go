package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultMaxAttempts  = 8
	defaultBaseBackoff  = time.Second
	defaultMaxBackoff   = time.Hour
	defaultPollInterval = 250 * time.Millisecond
	errorPause          = time.Second
)

// Sink delivers a notification over one channel.
type Sink interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

type DispatcherConfig struct {
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	PollInterval time.Duration
}

type Dispatcher struct {
	store Store
	queue Queue
	sinks map[string]Sink
	cfg   DispatcherConfig
	now   func() time.Time
}

func NewDispatcher(st Store, queue Queue, sinks map[string]Sink, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Dispatcher{store: st, queue: queue, sinks: sinks, cfg: cfg, now: time.Now}
}

// Run starts workers and blocks until ctx is cancelled and all of them return.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.work(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	log.Printf("[dispatch] worker %d started", id)
	for {
		if ctx.Err() != nil {
			log.Printf("[dispatch] worker %d stopped", id)
			return
		}
		processed, err := d.ProcessNext(ctx)
		switch {
		case err != nil:
			log.Printf("[dispatch] worker %d: %v", id, err)
			sleep(ctx, errorPause)
		case !processed:
			sleep(ctx, d.cfg.PollInterval)
		}
	}
}

// ProcessNext handles at most one due notification. It reports whether an item
// was taken off the queue.
func (d *Dispatcher) ProcessNext(ctx context.Context) (bool, error) {
	item, err := d.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	defer func() {
		if err := d.queue.Complete(ctx, item.NotificationID); err != nil {
			log.Printf("[dispatch] complete %s: %v", item.NotificationID, err)
		}
	}()

	id, err := primitive.ObjectIDFromHex(item.NotificationID)
	if err != nil {
		return true, fmt.Errorf("bad notification id %q: %w", item.NotificationID, err)
	}
	n, err := d.store.NotificationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return true, fmt.Errorf("notification %s no longer exists", item.NotificationID)
	}
	if err != nil {
		return true, d.requeue(ctx, item.NotificationID, d.now().Add(d.cfg.BaseBackoff),
			fmt.Errorf("load notification %s: %w", item.NotificationID, err))
	}
	if n.Status != models.NotificationPending {
		return true, nil
	}

	attempts := n.Attempts + 1
	sendErr := d.deliver(ctx, n)
	now := d.now()
	if sendErr == nil {
		if err := d.store.MarkNotificationSent(ctx, id, attempts, now); err != nil {
			return true, fmt.Errorf("mark %s sent: %w", item.NotificationID, err)
		}
		log.Printf("[dispatch] %s %s delivered (attempt %d)", n.Kind, item.NotificationID, attempts)
		return true, nil
	}

	next := now.Add(Backoff(attempts, d.cfg.BaseBackoff, d.cfg.MaxBackoff))
	if attempts >= d.cfg.MaxAttempts {
		log.Printf("[dispatch] %s %s dead after %d attempts: %v", n.Kind, item.NotificationID, attempts, sendErr)
		if err := d.store.MarkNotificationFailed(ctx, id, attempts, sendErr.Error(), now, models.NotificationDead); err != nil {
			return true, d.requeue(ctx, item.NotificationID, next, fmt.Errorf("mark %s dead: %w", item.NotificationID, err))
		}
		return true, nil
	}
	log.Printf("[dispatch] %s %s attempt %d failed, retry at %s: %v", n.Kind, item.NotificationID, attempts, next.Format(time.RFC3339), sendErr)
	if err := d.store.MarkNotificationFailed(ctx, id, attempts, sendErr.Error(), next, models.NotificationPending); err != nil {
		return true, d.requeue(ctx, item.NotificationID, next, fmt.Errorf("record attempt %d of %s: %w", attempts, item.NotificationID, err))
	}
	return true, d.queue.Enqueue(ctx, Item{NotificationID: item.NotificationID, Score: dueScore(next)})
}

// requeue puts an item back after a store error so the notification is not
// stranded as pending with nothing scheduled. cause is returned either way.
func (d *Dispatcher) requeue(ctx context.Context, notificationID string, at time.Time, cause error) error {
	err := d.queue.Enqueue(context.WithoutCancel(ctx), Item{NotificationID: notificationID, Score: dueScore(at)})
	if err != nil {
		return errors.Join(cause, fmt.Errorf("requeue %s: %w", notificationID, err))
	}
	return cause
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) error {
	sink, ok := d.sinks[n.Channel]
	if !ok || sink == nil {
		return fmt.Errorf("no sink for channel %q", n.Channel)
	}
	return sink.Deliver(ctx, n)
}

// Recover re-schedules pending notifications that are not on the queue, e.g.
// after a crash between insert and enqueue or when the queue is in-memory.
func (d *Dispatcher) Recover(ctx context.Context) error {
	if err := d.queue.ClearProcessing(ctx); err != nil {
		log.Printf("[dispatch] warning: failed to clear processing set: %v", err)
	}
	pending, err := d.store.PendingNotifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending notifications: %w", err)
	}
	queued, err := d.queue.PendingItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queued items: %w", err)
	}
	inQueue := make(map[string]bool, len(queued))
	for _, it := range queued {
		inQueue[it.NotificationID] = true
	}

	var errs []error
	recovered := 0
	for _, n := range pending {
		hex := n.ID.Hex()
		if inQueue[hex] {
			continue
		}
		if err := d.queue.Enqueue(ctx, Item{NotificationID: hex, Score: dueScore(n.NextAttemptAt)}); err != nil {
			errs = append(errs, err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		log.Printf("[dispatch] recovered %d pending notifications", recovered)
	}
	return errors.Join(errs...)
}

// Backoff returns base*2^(attempt-1), capped at ceiling.
func Backoff(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		return ceiling
	}
	b := base * time.Duration(1<<uint(attempt-1))
	if b > ceiling || b <= 0 {
		return ceiling
	}
	return b
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
