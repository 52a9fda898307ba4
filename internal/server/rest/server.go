// Package rest exposes the auth server's JSON API over HTTP.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/auth"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/services"
	"github.com/gorilla/mux"
)

// UserService is the part of services.UserService the handlers rely on.
type UserService interface {
	Register(ctx context.Context, email, password, name string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
	UpgradePlan(ctx context.Context, userID string, plan entitlement.Plan) (*models.User, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Entitlements(ctx context.Context, userID string) (entitlement.Plan, []entitlement.Feature, error)
}

type Server struct {
	address string
	users   UserService
	logger  logging.Logger
	now     func() time.Time
}

func NewServer(address string, l logging.Logger, us UserService) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "rest_server"),
		users:   us,
		now:     time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	a := api.PathPrefix("/auth").Subrouter()
	a.Handle("/register", s.requireJSON(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	a.Handle("/login", s.requireJSON(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	a.Handle("/me", s.requireAuth(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)
	a.Handle("/upgrade-plan", s.requireAuth(s.requireJSON(http.HandlerFunc(s.handleUpgradePlan)))).Methods(http.MethodPut)
	a.Handle("/logout", s.requireAuth(http.HandlerFunc(s.handleLogout))).Methods(http.MethodPost)
	a.Handle("/entitlements", s.requireAuth(http.HandlerFunc(s.handleEntitlements))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
