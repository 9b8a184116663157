package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dispatchQueueKey = "bookshop:notify:queue"
	processingSetKey = "bookshop:notify:processing"
)

// Item schedules one notification. Score is the due time in unix nanoseconds.
type Item struct {
	NotificationID string  `json:"notification_id"`
	Score          float64 `json:"score"`
}

// Queue is a delayed work queue: items become visible once their score is due.
type Queue interface {
	Enqueue(ctx context.Context, item Item) error
	Dequeue(ctx context.Context) (*Item, error)
	Complete(ctx context.Context, id string) error
	PendingItems(ctx context.Context) ([]Item, error)
	ClearProcessing(ctx context.Context) error
	Close() error
}

func dueScore(t time.Time) float64 {
	return float64(t.UnixNano())
}

type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisQueue{client: client}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Enqueue(ctx context.Context, item Item) error {
	if item.Score == 0 {
		item.Score = dueScore(time.Now())
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	return q.client.ZAdd(ctx, dispatchQueueKey, redis.Z{
		Score:  item.Score,
		Member: string(data),
	}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Item, error) {
	results, err := q.client.ZRangeByScoreWithScores(ctx, dispatchQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", dueScore(time.Now())),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get items from queue: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	member := results[0].Member
	removed, err := q.client.ZRem(ctx, dispatchQueueKey, member).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to remove item from queue: %w", err)
	}
	// another worker won the race for this member
	if removed == 0 {
		return nil, nil
	}

	var item Item
	if err := json.Unmarshal([]byte(member.(string)), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	if err := q.client.SAdd(ctx, processingSetKey, item.NotificationID).Err(); err != nil {
		return nil, fmt.Errorf("failed to add to processing set: %w", err)
	}
	return &item, nil
}

func (q *RedisQueue) Complete(ctx context.Context, id string) error {
	return q.client.SRem(ctx, processingSetKey, id).Err()
}

func (q *RedisQueue) PendingItems(ctx context.Context) ([]Item, error) {
	results, err := q.client.ZRangeWithScores(ctx, dispatchQueueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending items: %w", err)
	}
	var items []Item
	for _, r := range results {
		var item Item
		if err := json.Unmarshal([]byte(r.Member.(string)), &item); err != nil {
			continue
		}
		item.Score = r.Score
		items = append(items, item)
	}
	return items, nil
}

func (q *RedisQueue) ClearProcessing(ctx context.Context) error {
	return q.client.Del(ctx, processingSetKey).Err()
}

// MemoryQueue is the single-process Queue used when no Redis is configured.
type MemoryQueue struct {
	mu         sync.Mutex
	items      []Item
	processing map[string]bool
	now        func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{processing: make(map[string]bool), now: time.Now}
}

func (q *MemoryQueue) Enqueue(_ context.Context, item Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if item.Score == 0 {
		item.Score = dueScore(q.now())
	}
	q.items = append(q.items, item)
	sort.SliceStable(q.items, func(i, j int) bool { return q.items[i].Score < q.items[j].Score })
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.items[0].Score > dueScore(q.now()) {
		return nil, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.processing[item.NotificationID] = true
	return &item, nil
}

func (q *MemoryQueue) Complete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, id)
	return nil
}

func (q *MemoryQueue) PendingItems(_ context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item{}, q.items...), nil
}

func (q *MemoryQueue) ClearProcessing(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing = make(map[string]bool)
	return nil
}

// Len reports queued (not yet dequeued) items.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MemoryQueue) Close() error { return nil }
