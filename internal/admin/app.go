// Package admin implements the operator commands of the tours backend:
// applying migrations, creating users and importing tour data. Commands go
// through the same services as the HTTP API.
package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/flagx"
	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/config"
	"github.com/dmitrijs2005/tours/internal/server/mail"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tours/internal/server/services"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate                              apply store migrations
  create-user -email <e> [-name <n>]   create a user, password is prompted
  import-tours -file <path>            create tours from a JSON array`

var ErrUsage = errors.New(usage)

// openStore is a test seam for repomanager.Open.
var openStore = repomanager.Open

type App struct {
	config *config.Config
	store  repomanager.RepositoryManager
	users  *services.UserService
	tours  *services.TourService
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger := logging.New(c.Env, os.Stderr).With("module", "admin")

	store, err := openStore(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &App{
		config: c,
		store:  store,
		users:  services.NewUserService(store, mail.NewLogSender(logger), logger, c, nil),
		tours:  services.NewTourService(store, nil, logger),
		reader: bufio.NewReader(in),
		out:    out,
	}, nil
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return a.migrate(ctx)
	case "create-user":
		return a.createUser(ctx, args[1:])
	case "import-tours":
		return a.importTours(ctx, args[1:])
	default:
		return ErrUsage
	}
}

func (a *App) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

func (a *App) migrate(ctx context.Context) error {
	if err := a.store.RunMigrations(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "user name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-name"})); err != nil {
		return err
	}

	if *email == "" {
		v, err := GetSimpleText(a.reader, "Email", a.out)
		if err != nil {
			return err
		}
		*email = v
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}

	res, err := a.users.Signup(ctx, models.SignupInput{Name: *name, Email: *email, Password: string(password)})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user %s created with id %s\n", res.User.Email, res.User.ID)
	return nil
}

func (a *App) importTours(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-tours", flag.ContinueOnError)
	fs.SetOutput(a.out)
	path := fs.String("file", "", "path to a JSON array of tours")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-file"})); err != nil {
		return err
	}
	if *path == "" {
		return ErrUsage
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return err
	}

	var tours []*models.Tour
	if err := json.Unmarshal(data, &tours); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	for i, t := range tours {
		t.ID = ""
		created, err := a.tours.Create(ctx, t)
		if err != nil {
			return fmt.Errorf("tour %d (%s): %w", i, t.Name, err)
		}
		fmt.Fprintf(a.out, "imported %s as %s\n", created.Name, created.ID)
	}

	fmt.Fprintf(a.out, "%d tours imported\n", len(tours))
	return nil
}
