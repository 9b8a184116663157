package cart

import (
	"context"
	"sync"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

// Persister saves and restores one shopper's state. Load of a shopper with
// nothing saved returns an empty State and no error.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

type Store struct {
	mu    sync.Mutex
	state State

	// saveMu orders reduce+save pairs so the last save is the newest state.
	saveMu  sync.Mutex
	persist Persister
}

func NewStore(p Persister) *Store {
	return &Store{state: State{Items: []Line{}, Wishlist: []Book{}}, persist: p}
}

// Load replaces the in-memory state with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	st, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = st.clone()
	s.mu.Unlock()
	return nil
}

// Dispatch applies a and saves the result. The new state is kept even if the
// save fails; the error is returned so the caller can surface it.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.clone()
	s.mu.Unlock()
	return snapshot, s.persist.Save(ctx, snapshot)
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Checkout returns the cart as order lines for POST /api/orders.
func (s *Store) Checkout() []service.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]service.OrderLine, 0, len(s.state.Items))
	for _, l := range s.state.Items {
		lines = append(lines, service.OrderLine{BookID: l.Book.ID, Quantity: l.Quantity})
	}
	return lines
}
