package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
	"bibliobalance/internal/security"
	"bibliobalance/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
	logger         *zap.Logger

	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
	states               *security.StateSigner
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService, oauth OAuthSettings, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		profileService:       profileService,
		logger:               logger,
		oauthProviders:       oauth.Providers,
		oauthRedirectBaseURL: oauth.RedirectBaseURL,
		appBaseURL:           oauth.AppBaseURL,
		states:               security.NewStateSigner(oauth.StateSecret),
	}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      *models.Profile `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{User: res.Profile, Token: res.Token, ExpiresAt: res.ExpiresAt}
}

// Signup registers an account and returns a bearer token for it.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	username := req.Username
	if username == "" {
		username = req.DisplayName
	}

	res, err := h.authService.Register(r.Context(), req.Email, req.Password, username)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to register account", err)
		return
	}
	writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	res, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to authenticate", err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// Me returns the profile behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		respondWithError(w, h.logger, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	profile, err := h.profileService.Get(r.Context(), session.UserID)
	if err != nil {
		respondServiceError(w, h.logger, "Failed to load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      profile,
		"expiresAt": session.ExpiresAt,
	})
}
