package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// scriptedSink fails the first failures deliveries.
type scriptedSink struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *scriptedSink) Deliver(context.Context, *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("smtp: 421 try again later")
	}
	return nil
}

type harness struct {
	db     *memstore.Store
	queue  *MemoryQueue
	outbox *Outbox
	disp   *Dispatcher
	clock  *clock
}

func newHarness(sink Sink, maxAttempts int) *harness {
	c := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	db := memstore.New()
	q := NewMemoryQueue()
	q.now = c.Now
	o := NewOutbox(db, q)
	o.now = c.Now
	d := NewDispatcher(db, q, map[string]Sink{models.ChannelEmail: sink}, DispatcherConfig{MaxAttempts: maxAttempts})
	d.now = c.Now
	return &harness{db: db, queue: q, outbox: o, disp: d, clock: c}
}

func (h *harness) enqueue(t *testing.T) primitive.ObjectID {
	t.Helper()
	n := &models.Notification{
		Kind:    models.KindOrderPlacedCustomer,
		Channel: models.ChannelEmail,
		To:      "customer@example.com",
		Subject: "Order confirmation",
		Body:    "<p>thanks</p>",
	}
	require.NoError(t, h.outbox.Enqueue(context.Background(), n))
	return n.ID
}

func (h *harness) load(t *testing.T, id primitive.ObjectID) *models.Notification {
	t.Helper()
	n, err := h.db.NotificationByID(context.Background(), id)
	require.NoError(t, err)
	return n
}

func TestBackoff(t *testing.T) {
	base, ceiling := time.Second, time.Hour
	assert.Equal(t, time.Second, Backoff(0, base, ceiling))
	assert.Equal(t, time.Second, Backoff(1, base, ceiling))
	assert.Equal(t, 2*time.Second, Backoff(2, base, ceiling))
	assert.Equal(t, 8*time.Second, Backoff(4, base, ceiling))
	assert.Equal(t, 2048*time.Second, Backoff(12, base, ceiling))
	assert.Equal(t, time.Hour, Backoff(13, base, ceiling))
	assert.Equal(t, time.Hour, Backoff(64, base, ceiling))
}

func TestDispatcher_RetriesWithBackoffThenSends(t *testing.T) {
	sink := &scriptedSink{failures: 2}
	h := newHarness(sink, DefaultMaxAttempts)
	ctx := context.Background()
	id := h.enqueue(t)
	start := h.clock.Now()

	processed, err := h.disp.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	n := h.load(t, id)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "smtp: 421 try again later", n.LastError)
	assert.Equal(t, start.Add(time.Second), n.NextAttemptAt)

	// Not due yet.
	processed, err = h.disp.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	h.clock.Advance(time.Second)
	processed, err = h.disp.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	n = h.load(t, id)
	assert.Equal(t, 2, n.Attempts)
	assert.Equal(t, h.clock.Now().Add(2*time.Second), n.NextAttemptAt)

	h.clock.Advance(2 * time.Second)
	processed, err = h.disp.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	n = h.load(t, id)
	assert.Equal(t, models.NotificationSent, n.Status)
	assert.Equal(t, 3, n.Attempts)
	require.NotNil(t, n.SentAt)
	assert.Empty(t, n.LastError)
	assert.Equal(t, 0, h.queue.Len())
	assert.Equal(t, 3, sink.calls)
}

func TestDispatcher_DeadLettersAfterMaxAttempts(t *testing.T) {
	sink := &scriptedSink{failures: 1000}
	h := newHarness(sink, 3)
	ctx := context.Background()
	id := h.enqueue(t)

	for attempt := 1; attempt <= 3; attempt++ {
		processed, err := h.disp.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, processed, "attempt %d", attempt)
		h.clock.Advance(Backoff(attempt, time.Second, time.Hour))
	}

	n := h.load(t, id)
	assert.Equal(t, models.NotificationDead, n.Status)
	assert.Equal(t, 3, n.Attempts)
	assert.Equal(t, 0, h.queue.Len())

	processed, err := h.disp.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)

	// An admin retry re-arms it with a fresh budget.
	require.NoError(t, h.outbox.Retry(ctx, id))
	n = h.load(t, id)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 0, n.Attempts)
	assert.Equal(t, 1, h.queue.Len())

	assert.Error(t, h.outbox.Retry(ctx, id), "pending notifications cannot be retried")
}

func TestDispatcher_UnknownChannelIsRetried(t *testing.T) {
	h := newHarness(&scriptedSink{}, DefaultMaxAttempts)
	n := &models.Notification{Kind: models.KindOrderStatusChanged, Channel: "sms", To: "0771234567"}
	require.NoError(t, h.outbox.Enqueue(context.Background(), n))

	_, err := h.disp.ProcessNext(context.Background())
	require.NoError(t, err)
	got := h.load(t, n.ID)
	assert.Equal(t, models.NotificationPending, got.Status)
	assert.Contains(t, got.LastError, `no sink for channel "sms"`)
}

func TestDispatcher_SkipsAlreadySent(t *testing.T) {
	sink := &scriptedSink{}
	h := newHarness(sink, DefaultMaxAttempts)
	id := h.enqueue(t)
	require.NoError(t, h.db.MarkNotificationSent(context.Background(), id, 1, h.clock.Now()))

	processed, err := h.disp.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 0, sink.calls)
}

func TestDispatcher_RecoverRequeuesOrphans(t *testing.T) {
	h := newHarness(&scriptedSink{}, DefaultMaxAttempts)
	ctx := context.Background()
	queued := h.enqueue(t)
	_, err := h.db.InsertNotification(ctx, &models.Notification{
		Kind:          models.KindPaymentVerified,
		Channel:       models.ChannelEmail,
		Status:        models.NotificationPending,
		NextAttemptAt: h.clock.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, h.queue.Len())

	require.NoError(t, h.disp.Recover(ctx))
	assert.Equal(t, 2, h.queue.Len())

	require.NoError(t, h.disp.Recover(ctx))
	assert.Equal(t, 2, h.queue.Len(), "recover must not duplicate queued items")

	items, err := h.queue.PendingItems(ctx)
	require.NoError(t, err)
	ids := []string{items[0].NotificationID, items[1].NotificationID}
	assert.Contains(t, ids, queued.Hex())
}

func TestDispatcher_RunStopsWithoutLeaks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := &scriptedSink{}
	db := memstore.New()
	q := NewMemoryQueue()
	outbox := NewOutbox(db, q)
	d := NewDispatcher(db, q, map[string]Sink{models.ChannelEmail: sink}, DispatcherConfig{PollInterval: 5 * time.Millisecond})

	n := &models.Notification{Kind: models.KindOrderPlacedAdmin, Channel: models.ChannelEmail, To: "owner@example.com"}
	require.NoError(t, outbox.Enqueue(context.Background(), n))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, 3)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := db.NotificationByID(context.Background(), n.ID)
		return err == nil && got.Status == models.NotificationSent
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

// flakyStore fails the first loads/marks calls to the wrapped store.
type flakyStore struct {
	*memstore.Store
	mu    sync.Mutex
	loads int
	marks int
}

func (f *flakyStore) NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	f.mu.Lock()
	fail := f.loads > 0
	if fail {
		f.loads--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("server selection timeout")
	}
	return f.Store.NotificationByID(ctx, id)
}

func (f *flakyStore) MarkNotificationFailed(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string, next time.Time, status models.NotificationStatus) error {
	f.mu.Lock()
	fail := f.marks > 0
	if fail {
		f.marks--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("write concern timeout")
	}
	return f.Store.MarkNotificationFailed(ctx, id, attempts, lastErr, next, status)
}

func (h *harness) dispatcherOn(st Store, sink Sink) *Dispatcher {
	d := NewDispatcher(st, h.queue, map[string]Sink{models.ChannelEmail: sink}, DispatcherConfig{})
	d.now = h.clock.Now
	return d
}

func TestDispatcher_RequeuesWhenLoadFails(t *testing.T) {
	sink := &scriptedSink{}
	h := newHarness(sink, DefaultMaxAttempts)
	d := h.dispatcherOn(&flakyStore{Store: h.db, loads: 1}, sink)
	ctx := context.Background()
	id := h.enqueue(t)

	processed, err := d.ProcessNext(ctx)
	assert.True(t, processed)
	assert.ErrorContains(t, err, "server selection timeout")
	assert.Equal(t, 1, h.queue.Len())
	assert.Equal(t, 0, sink.calls)

	processed, err = d.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed, "requeued item waits for the retry delay")

	h.clock.Advance(time.Second)
	processed, err = d.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, models.NotificationSent, h.load(t, id).Status)
}

func TestDispatcher_RequeuesWhenRecordingFailureFails(t *testing.T) {
	sink := &scriptedSink{failures: 1}
	h := newHarness(sink, DefaultMaxAttempts)
	d := h.dispatcherOn(&flakyStore{Store: h.db, marks: 1}, sink)
	ctx := context.Background()
	id := h.enqueue(t)

	_, err := d.ProcessNext(ctx)
	assert.ErrorContains(t, err, "write concern timeout")
	assert.Equal(t, 1, h.queue.Len())
	assert.Equal(t, models.NotificationPending, h.load(t, id).Status)

	h.clock.Advance(time.Second)
	_, err = d.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, h.load(t, id).Status)
	assert.Equal(t, 2, sink.calls)
}

func TestDispatcher_DropsDeletedNotification(t *testing.T) {
	h := newHarness(&scriptedSink{}, DefaultMaxAttempts)
	require.NoError(t, h.queue.Enqueue(context.Background(), Item{NotificationID: primitive.NewObjectID().Hex()}))

	processed, err := h.disp.ProcessNext(context.Background())
	assert.True(t, processed)
	assert.ErrorContains(t, err, "no longer exists")
	assert.Equal(t, 0, h.queue.Len())
}
