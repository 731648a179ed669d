package httptransport

import (
	"net/http"
	"time"

	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/ids"
	"ads-gateway/internal/session"

	"github.com/rs/zerolog/log"
)

// AuthHandlers serves the browser leg of the OAuth flow. The MCP side only
// hands out the login URL; the redirect and callback land here.
type AuthHandlers struct {
	sessions *session.Manager
	api      *fbapi.Client
}

func NewAuthHandlers(sessions *session.Manager, api *fbapi.Client) *AuthHandlers {
	return &AuthHandlers{sessions: sessions, api: api}
}

// Login starts the consent flow: mint a state nonce, persist it, redirect
// to the provider's dialog.
func (h *AuthHandlers) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := ids.New()
		if err := h.sessions.SaveLoginState(r.Context(), state); err != nil {
			log.Error().Err(err).Msg("save login state failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		http.Redirect(w, r, h.sessions.LoginURL(state), http.StatusFound)
	}
}

// Callback finishes the flow: burn the state nonce, redeem the code, look
// up who the token belongs to, persist tokens and session, and hand the
// caller a signed session token.
func (h *AuthHandlers) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if !h.sessions.ConsumeLoginState(ctx, state) {
			WriteHTTPError(w, http.StatusForbidden, "invalid_state")
			return
		}

		tokens, err := h.sessions.ExchangeCodeForTokens(ctx, code)
		if err != nil {
			log.Warn().Err(err).Msg("oauth code exchange failed")
			WriteHTTPError(w, http.StatusBadGateway, "exchange_failed")
			return
		}

		profile, err := h.api.CurrentUser(ctx, fbapi.StaticToken(tokens.AccessToken))
		if err != nil {
			log.Warn().Err(err).Msg("profile lookup failed")
			WriteHTTPError(w, http.StatusBadGateway, "profile_lookup_failed")
			return
		}

		if err := h.sessions.StoreUserTokens(ctx, profile.ID, *tokens); err != nil {
			log.Error().Err(err).Str("user_id", profile.ID).Msg("store tokens failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if err := h.sessions.StoreUserSession(ctx, session.UserSession{
			UserID:         profile.ID,
			Email:          profile.Email,
			Name:           profile.Name,
			ProviderUserID: profile.ID,
			CreatedAt:      time.Now(),
		}); err != nil {
			log.Error().Err(err).Str("user_id", profile.ID).Msg("store session failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		sessionToken, err := h.sessions.CreateSessionToken(profile.ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", profile.ID).Msg("sign session token failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		log.Info().Str("user_id", profile.ID).Msg("user signed in")
		WriteJSON(w, http.StatusOK, map[string]any{
			"session_token": sessionToken,
			"user": map[string]any{
				"id":    profile.ID,
				"name":  profile.Name,
				"email": profile.Email,
			},
		})
	}
}
