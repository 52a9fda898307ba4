package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/services"
)

const maxRequestBody = 1 << 20

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type upgradePlanRequest struct {
	Plan entitlement.Plan `json:"plan"`
}

type authResponse struct {
	Message string          `json:"message,omitempty"`
	User    models.UserView `json:"user"`
	Token   string          `json:"token"`
}

type userResponse struct {
	Message string          `json:"message,omitempty"`
	User    models.UserView `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type entitlementsResponse struct {
	Plan     entitlement.Plan      `json:"plan"`
	Features []entitlement.Feature `json:"features"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service errors onto statuses. Anything unexpected
// is logged and reported as a 500 without details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, validationMsg string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, validationMsg)
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Timestamp: s.now().UTC()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err, "Email, password, and name are required")
		return
	}

	s.logger.Info(r.Context(), "user registered", "user_id", res.User.ID)
	writeJSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", User: res.User.View(), Token: res.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err, "Email and password are required")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: res.User.View(), Token: res.Token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	u, err := s.users.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: u.View()})
}

func (s *Server) handleUpgradePlan(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req upgradePlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Plan == "" {
		writeError(w, http.StatusBadRequest, "Plan is required")
		return
	}

	u, err := s.users.UpgradePlan(r.Context(), claims.UserID, req.Plan)
	if err != nil {
		s.writeServiceError(w, r, err, "Invalid plan")
		return
	}

	s.logger.Info(r.Context(), "plan upgraded", "user_id", u.ID, "plan", u.Plan)
	writeJSON(w, http.StatusOK, userResponse{Message: "Plan upgraded successfully", User: u.View()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(r.Context(), claimsFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	plan, features, err := s.users.Entitlements(r.Context(), claims.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, entitlementsResponse{Plan: plan, Features: features})
}

var _ UserService = (*services.UserService)(nil)
