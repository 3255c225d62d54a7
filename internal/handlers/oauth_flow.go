package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"bibliobalance/internal/config"
	"bibliobalance/internal/security"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// OAuthSettings configures the social login flow.
type OAuthSettings struct {
	Providers       map[string]OAuthProvider
	RedirectBaseURL string
	AppBaseURL      string
	StateSecret     string
}

// NewOAuthSettings builds the provider table from configuration. Providers
// without credentials are left out.
func NewOAuthSettings(cfg *config.Config) OAuthSettings {
	providers := make(map[string]OAuthProvider)
	if cfg.GoogleOAuthEnabled() {
		providers["google"] = OAuthProvider{
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: googleUserInfoURL,
			AuthParams:  map[string]string{"prompt": "select_account"},
		}
	}
	return OAuthSettings{
		Providers:       providers,
		RedirectBaseURL: cfg.OAuthRedirectBaseURL,
		AppBaseURL:      cfg.AppBaseURL,
		StateSecret:     cfg.JWTSecret,
	}
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// Providers lists the configured OAuth providers.
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	type providerView struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		URL   string `json:"url"`
	}
	views := make([]providerView, 0, len(h.oauthProviders))
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, providerView{
			Name:  key,
			Label: provider.Label,
			URL:   fmt.Sprintf("/api/auth/%s/start", key),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := chi.URLParam(r, "provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, h.logger, http.StatusNotFound, "OAuth provider not configured", "", nil)
		return
	}

	state := h.states.NewState()
	expires := time.Now().Add(oauthCookieTTL)
	http.SetCookie(w, security.CreateCookie(r, oauthStateCookie, state, expires))
	http.SetCookie(w, security.CreateCookie(r, oauthProviderCookie, providerKey, expires))

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback. On success the browser
// is sent back to the web app with the bearer token in the URL fragment.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := chi.URLParam(r, "provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, h.logger, http.StatusNotFound, "OAuth provider not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		h.oauthFailed(w, r, "missing_code", nil)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.oauthFailed(w, r, "invalid_state", err)
		return
	}
	if err := h.states.Validate(state); err != nil {
		h.oauthFailed(w, r, "invalid_state", err)
		return
	}
	if providerCookie, err := r.Cookie(oauthProviderCookie); err == nil && providerCookie.Value != providerKey {
		h.oauthFailed(w, r, "provider_mismatch", nil)
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, oauthStateCookie))
	http.SetCookie(w, security.CreateDeleteCookie(r, oauthProviderCookie))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.oauthFailed(w, r, "exchange_failed", err)
		return
	}

	userInfo, err := fetchOAuthUserInfo(ctx, providerKey, provider, token)
	if err != nil {
		h.oauthFailed(w, r, "userinfo_failed", err)
		return
	}

	res, err := h.authService.OAuthLogin(ctx, providerKey, userInfo.Subject, userInfo.Email, userInfo.Name)
	if err != nil {
		h.oauthFailed(w, r, "login_failed", err)
		return
	}

	fragment := url.Values{"token": {res.Token}}.Encode()
	http.Redirect(w, r, h.appURL("/auth/callback")+"#"+fragment, http.StatusSeeOther)
}

func fetchOAuthUserInfo(ctx context.Context, providerKey string, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	switch providerKey {
	case "google":
		return fetchGoogleUser(ctx, provider, token)
	default:
		return oauthUserInfo{}, errors.New("unsupported OAuth provider")
	}
}

func fetchGoogleUser(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to decode Google user info: %w", err)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New("google account is missing an id or email")
	}
	if !payload.VerifiedEmail {
		return oauthUserInfo{}, errors.New("google email is not verified")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/api/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) appURL(path string) string {
	return strings.TrimRight(h.appBaseURL, "/") + path
}

// oauthFailed sends the browser back to the app's login page with a short
// error code.
func (h *AuthHandler) oauthFailed(w http.ResponseWriter, r *http.Request, reason string, err error) {
	h.logger.Warn("OAuth login failed", zap.String("reason", reason), zap.Error(err))
	target := h.appURL("/auth") + "?" + url.Values{"error": {reason}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
