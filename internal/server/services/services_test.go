package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/mail"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source shared by the services and the store.
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
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMailer struct {
	err  error
	sent []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePresigner struct {
	err error
}

func (f *fakePresigner) PresignTourImageUpload(ctx context.Context, tourID, contentType string) (*models.UploadTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadTarget{Key: "tours/" + tourID + "/k", URL: "http://s3/tours/" + tourID + "/k?sig"}, nil
}

type fixture struct {
	rm      *repomanager.MemoryRepositoryManager
	clock   *clock
	mailer  *fakeMailer
	users   *UserService
	tours   *TourService
	reviews *ReviewService
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "test-secret",
		AccessTokenValidityDuration: time.Hour,
		ResetTokenValidityDuration:  10 * time.Minute,
		PasswordHashCost:            4,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	rm := repomanager.NewMemoryRepositoryManager()
	rm.Store.SetClock(c.Now)
	m := &fakeMailer{}
	log := logging.NewNopLogger()

	return &fixture{
		rm:      rm,
		clock:   c,
		mailer:  m,
		users:   NewUserService(rm, m, log, testConfig(), c.Now),
		tours:   NewTourService(rm, &fakePresigner{}, log),
		reviews: NewReviewService(rm, log),
	}
}

func (f *fixture) signup(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := f.users.Signup(context.Background(), models.SignupInput{
		Name:     strings.Split(email, "@")[0],
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) createTour(t *testing.T, name string, price float64, guides ...string) *models.Tour {
	t.Helper()
	tour, err := f.tours.Create(context.Background(), &models.Tour{
		Name:         name,
		Duration:     5,
		MaxGroupSize: 10,
		Difficulty:   "easy",
		Price:        price,
		Summary:      "A tour",
		ImageCover:   "cover.jpg",
		Guides:       guides,
	})
	require.NoError(t, err)
	return tour
}

var errBoom = errors.New("boom")
