package admin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, stdin string) (*App, *bytes.Buffer) {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = "memory://"
	c.PasswordHashCost = 4

	var out bytes.Buffer
	app, err := NewApp(context.Background(), c, strings.NewReader(stdin), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app, &out
}

func stubPasswords(t *testing.T, pw ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(pw) {
			return nil, errors.New("no more input")
		}
		i++
		return []byte(pw[i-1]), nil
	}
}

func TestRun_Usage(t *testing.T) {
	app, _ := newTestApp(t, "")
	assert.ErrorIs(t, app.Run(context.Background(), nil), ErrUsage)
	assert.ErrorIs(t, app.Run(context.Background(), []string{"frobnicate"}), ErrUsage)
}

func TestNewApp_StoreError(t *testing.T) {
	old := openStore
	defer func() { openStore = old }()
	openStore = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
		return nil, errors.New("boom")
	}

	c := &config.Config{}
	c.LoadDefaults()
	_, err := NewApp(context.Background(), c, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	app, out := newTestApp(t, "")
	require.NoError(t, app.Run(context.Background(), []string{"migrate"}))
	assert.Contains(t, out.String(), "migrations applied")
}

func TestCreateUser(t *testing.T) {
	app, out := newTestApp(t, "")
	stubPasswords(t, "password123", "password123")

	require.NoError(t, app.Run(context.Background(), []string{"create-user", "-email", "Ann@Example.com", "-name", "Ann"}))
	assert.Contains(t, out.String(), "user ann@example.com created")

	u, err := app.store.Users().GetByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
}

func TestCreateUser_PromptsForEmail(t *testing.T) {
	app, _ := newTestApp(t, "bob@example.com\n")
	stubPasswords(t, "password123", "password123")

	require.NoError(t, app.Run(context.Background(), []string{"create-user"}))
	_, err := app.store.Users().GetByEmail(context.Background(), "bob@example.com")
	assert.NoError(t, err)
}

func TestCreateUser_Errors(t *testing.T) {
	app, _ := newTestApp(t, "")

	stubPasswords(t, "password123", "password124")
	err := app.Run(context.Background(), []string{"create-user", "-email", "a@b.com"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	stubPasswords(t, "short", "short")
	err = app.Run(context.Background(), []string{"create-user", "-email", "a@b.com"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	stubPasswords(t)
	err = app.Run(context.Background(), []string{"create-user", "-email", "a@b.com"})
	assert.Error(t, err)
}

func TestImportTours(t *testing.T) {
	app, out := newTestApp(t, "")

	path := filepath.Join(t.TempDir(), "tours.json")
	data := `[
		{"id": "ignored", "name": "The Forest Hiker", "duration": 5, "maxGroupSize": 25, "difficulty": "easy",
		 "price": 397, "summary": "Breathtaking hike", "imageCover": "tour-1-cover.jpg"},
		{"name": "The Sea Explorer", "duration": 7, "maxGroupSize": 15, "difficulty": "medium",
		 "price": 497, "summary": "Exploring the waters", "imageCover": "tour-2-cover.jpg"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	require.NoError(t, app.Run(context.Background(), []string{"import-tours", "-file", path}))
	assert.Contains(t, out.String(), "2 tours imported")

	n, err := app.store.Tours().Count(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = app.store.Tours().GetByID(context.Background(), "ignored")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestImportTours_Errors(t *testing.T) {
	app, _ := newTestApp(t, "")
	ctx := context.Background()

	assert.ErrorIs(t, app.Run(ctx, []string{"import-tours"}), ErrUsage)
	assert.Error(t, app.Run(ctx, []string{"import-tours", "-file", filepath.Join(t.TempDir(), "missing.json")}))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	assert.ErrorIs(t, app.Run(ctx, []string{"import-tours", "-file", bad}), common.ErrorValidation)

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"name": "No price"}]`), 0o600))
	assert.ErrorIs(t, app.Run(ctx, []string{"import-tours", "-file", invalid}), common.ErrorValidation)
}
