// Package cart is the shopper's cart and wishlist state. Changes go through
// Reduce so every client applies them the same way; a Store keeps the
// current state and saves it through a Persister after each change. Nothing
// reaches the server until Checkout turns the cart into order lines.
package cart

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book is the catalog snapshot shown in the cart. Price is display only; the
// order total is computed server side.
type Book struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
	Price float64            `json:"price"`
	Image string             `json:"image,omitempty"`
}

type Line struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

type State struct {
	Items    []Line `json:"items"`
	Wishlist []Book `json:"wishlist"`
}

type Action interface {
	apply(State) State
}

// Add puts Qty copies of Book in the cart, merging with an existing line.
// Qty below 1 adds one.
type Add struct {
	Book Book
	Qty  int
}

type Remove struct {
	BookID primitive.ObjectID
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
type SetQuantity struct {
	BookID primitive.ObjectID
	Qty    int
}

type Clear struct{}

// ToggleWishlist adds Book to the wishlist, or removes it if present.
type ToggleWishlist struct {
	Book Book
}

type RemoveWishlist struct {
	BookID primitive.ObjectID
}

// Reduce returns the state after a. s is not modified.
func Reduce(s State, a Action) State {
	return a.apply(s.clone())
}

func (a Add) apply(s State) State {
	qty := a.Qty
	if qty < 1 {
		qty = 1
	}
	if i := s.lineIndex(a.Book.ID); i >= 0 {
		s.Items[i].Quantity += qty
		s.Items[i].Book = a.Book
		return s
	}
	s.Items = append(s.Items, Line{Book: a.Book, Quantity: qty})
	return s
}

func (a Remove) apply(s State) State {
	if i := s.lineIndex(a.BookID); i >= 0 {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
	}
	return s
}

func (a SetQuantity) apply(s State) State {
	i := s.lineIndex(a.BookID)
	if i < 0 {
		return s
	}
	if a.Qty <= 0 {
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
		return s
	}
	s.Items[i].Quantity = a.Qty
	return s
}

func (Clear) apply(s State) State {
	s.Items = []Line{}
	return s
}

func (a ToggleWishlist) apply(s State) State {
	if i := s.wishIndex(a.Book.ID); i >= 0 {
		s.Wishlist = append(s.Wishlist[:i], s.Wishlist[i+1:]...)
		return s
	}
	s.Wishlist = append(s.Wishlist, a.Book)
	return s
}

func (a RemoveWishlist) apply(s State) State {
	if i := s.wishIndex(a.BookID); i >= 0 {
		s.Wishlist = append(s.Wishlist[:i], s.Wishlist[i+1:]...)
	}
	return s
}

// Count is the number of units in the cart.
func (s State) Count() int {
	n := 0
	for _, l := range s.Items {
		n += l.Quantity
	}
	return n
}

// Subtotal is the display total from the snapshot prices.
func (s State) Subtotal() float64 {
	total := decimal.Zero
	for _, l := range s.Items {
		total = total.Add(decimal.NewFromFloat(l.Book.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func (s State) InWishlist(id primitive.ObjectID) bool {
	return s.wishIndex(id) >= 0
}

func (s State) lineIndex(id primitive.ObjectID) int {
	for i, l := range s.Items {
		if l.Book.ID == id {
			return i
		}
	}
	return -1
}

func (s State) wishIndex(id primitive.ObjectID) int {
	for i, b := range s.Wishlist {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	return State{
		Items:    append([]Line{}, s.Items...),
		Wishlist: append([]Book{}, s.Wishlist...),
	}
}
