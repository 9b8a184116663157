package cart

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCartTTL = 30 * 24 * time.Hour

// MemoryPersister keeps the last saved state in process.
type MemoryPersister struct {
	mu    sync.Mutex
	saved []byte
}

func (p *MemoryPersister) Load(_ context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return decodeState(p.saved)
}

func (p *MemoryPersister) Save(_ context.Context, s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.saved = b
	p.mu.Unlock()
	return nil
}

// FilePersister stores the state as JSON in one file, the way a browser keeps
// it in local storage.
type FilePersister struct {
	Path string
}

func (p FilePersister) Load(_ context.Context) (State, error) {
	b, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return decodeState(nil)
	}
	if err != nil {
		return State{}, err
	}
	return decodeState(b)
}

// Save writes through a temp file and rename so a crash never leaves half a file.
func (p FilePersister) Save(_ context.Context, s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return err
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}

// RedisPersister keeps one key per session.
type RedisPersister struct {
	client *redis.Client
	key    string
}

func NewRedisPersister(client *redis.Client, sessionID string) *RedisPersister {
	return &RedisPersister{client: client, key: "bookshop:cart:" + sessionID}
}

func (p *RedisPersister) Load(ctx context.Context) (State, error) {
	b, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return decodeState(nil)
	}
	if err != nil {
		return State{}, err
	}
	return decodeState(b)
}

func (p *RedisPersister) Save(ctx context.Context, s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key, b, redisCartTTL).Err()
}

func decodeState(b []byte) (State, error) {
	s := State{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s); err != nil {
			return State{}, err
		}
	}
	if s.Items == nil {
		s.Items = []Line{}
	}
	if s.Wishlist == nil {
		s.Wishlist = []Book{}
	}
	return s, nil
}
