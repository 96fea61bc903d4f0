// Package memory implements the repositories over process memory. It backs
// memory:// DSNs and the service and HTTP tests, and follows the same
// filtering, ordering and error semantics as the database backends.
package memory

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/tours/internal/server/repositories/tours"
	"github.com/dmitrijs2005/tours/internal/server/repositories/users"
)

// Store holds all collections behind one lock.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	tours   map[string]*models.Tour
	reviews map[string]*models.Review
	last    time.Time
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]*models.User),
		tours:   make(map[string]*models.Tour),
		reviews: make(map[string]*models.Review),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for createdAt and expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// stamp returns a creation time that is strictly increasing, so insertion
// order survives sorting by createdAt.
func (s *Store) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

var (
	_ users.Repository   = (*UserRepository)(nil)
	_ tours.Repository   = (*TourRepository)(nil)
	_ reviews.Repository = (*ReviewRepository)(nil)
)
