package login

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/daypick/daypick/internal/config"
	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type loginResult struct {
	UserId      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// GoogleAuth runs the Google OAuth code flow and resolves the returned
// profile to a local user row. The core never reads these endpoints: request
// handlers pass the resulting user id into services as a plain argument.
type GoogleAuth struct {
	db          *sql.DB
	userService user.Service
	oauthConfig *oauth2.Config
}

func NewGoogleAuth(db *sql.DB, userService user.Service, cfg config.Application) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/auth/google/callback",
		Scopes:       []string{goauth.UserinfoProfileScope},
	}

	return &GoogleAuth{db: db, userService: userService, oauthConfig: oauthConfig}
}

func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	_, err := g.db.ExecContext(r.Context(),
		"INSERT INTO google_auth (nonce, created_at) VALUES (?, ?)", stateNonce, time.Now().Unix())
	if err != nil {
		log.Errorf("failed to store Google auth nonce: %v", err)
		rest.RespondJSON(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to handle Google authentication",
		})
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline)

	rest.RespondJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: u})
}

func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	finalUrl := parts[0]
	nonce := parts[1]

	var known int
	err := g.db.QueryRowContext(r.Context(),
		"SELECT COUNT(*) FROM google_auth WHERE nonce = ?", nonce).Scan(&known)
	if err != nil || known == 0 {
		log.Errorf("unknown Google auth nonce %s: %v", nonce, err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	token, err := g.oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		log.Errorf("unable to exchange code for token: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	info, err := g.fetchUserinfo(r.Context(), token)
	if err != nil {
		log.Errorf("unable to fetch Google userinfo: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	u, err := g.userService.FindOrCreateGoogleUser(r.Context(), info.Id, info.Name, info.Picture)
	if err != nil {
		log.Errorf("unable to resolve user for Google sub: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	_, err = g.db.ExecContext(r.Context(),
		"UPDATE google_auth SET user_id = ?, access_token = ?, refresh_token = ?, expiry = ? WHERE nonce = ?",
		u.Id, token.AccessToken, token.RefreshToken, token.Expiry.Unix(), nonce)
	if err != nil {
		log.Errorf("unable to store Google auth token for nonce: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	log.Debugf("Google login completed for user %s", u.Id)
	http.Redirect(w, r, finalUrl+"?success=true&userId="+u.Id, http.StatusFound)
}

func (g *GoogleAuth) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*goauth.Userinfo, error) {
	svc, err := goauth.NewService(ctx, option.WithTokenSource(g.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("unable to build oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Do()
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	return info, nil
}

func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		http.Error(w, "unable to retrieve current user", http.StatusUnauthorized)
		return
	}
	_, err = g.db.ExecContext(r.Context(), "DELETE FROM google_auth WHERE user_id = ?", userId)
	if err != nil {
		log.Errorf("failed to delete Google auth rows for user %s: %v", userId, err)
		rest.RespondJSON(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to handle Google authentication",
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser returns the logged-in user's profile resolved by the middleware.
func (g *GoogleAuth) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	rest.RespondJSON(w, http.StatusOK, loginResult{UserId: u.Id, DisplayName: u.DisplayName})
}
