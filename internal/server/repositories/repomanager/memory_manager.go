package repomanager

import (
	"context"

	"github.com/dmitrijs2005/tours/internal/server/repositories/memory"
	"github.com/dmitrijs2005/tours/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/tours/internal/server/repositories/tours"
	"github.com/dmitrijs2005/tours/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. Data is lost
// on exit.
type MemoryRepositoryManager struct {
	Store   *memory.Store
	users   *memory.UserRepository
	tours   *memory.TourRepository
	reviews *memory.ReviewRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	s := memory.NewStore()
	return &MemoryRepositoryManager{
		Store:   s,
		users:   memory.NewUserRepository(s),
		tours:   memory.NewTourRepository(s),
		reviews: memory.NewReviewRepository(s),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository     { return m.users }
func (m *MemoryRepositoryManager) Tours() tours.Repository     { return m.tours }
func (m *MemoryRepositoryManager) Reviews() reviews.Repository { return m.reviews }

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(ctx context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close(ctx context.Context) error         { return nil }
