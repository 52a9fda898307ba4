package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/api"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/client"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/config"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/repositories/metadata"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/services"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer

	mu       sync.Mutex
	userName string
	loggedIn bool
	Mode     Mode
}

// NewApp opens the session database, builds the API client on top of it and
// restores a stored session.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel})

	db, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	tokens := api.NewMetadataTokenStore(metadata.NewSQLiteRepository(db))
	apiClient, err := api.New(c.ServerURL, &http.Client{Timeout: c.RequestTimeout}, tokens, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, db)
	app := &App{config: c, authService: as, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	s, err := as.Session(ctx)
	if err != nil {
		_ = as.Close(ctx)
		return nil, err
	}
	if s != nil {
		app.setUser(s.Email, true)
	}
	return app, nil
}

func (app *App) setMode(mode Mode) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.Mode != mode {
		app.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (app *App) mode() Mode {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.Mode
}

func (app *App) setUser(name string, loggedIn bool) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.userName = name
	app.loggedIn = loggedIn
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(ctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
