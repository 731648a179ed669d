package session

import (
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "ads-gateway"

// CreateSessionToken issues a signed, time-limited login credential for a
// user. The token only carries identity; provider credentials stay in the
// store.
func (m *Manager) CreateSessionToken(userID string) (string, error) {
	now := m.now()
	claims := jwtlib.MapClaims{
		"iss": tokenIssuer,
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(m.cfg.SessionTTL).Unix(),
		"jti": uuid.New().String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifySessionToken returns the user id for a valid token. Signature
// failure, expiry and malformed input all collapse to not-ok so callers
// cannot distinguish why a token was rejected.
func (m *Manager) VerifySessionToken(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	token, err := jwtlib.ParseWithClaims(raw, jwtlib.MapClaims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(m.cfg.SessionSecret), nil
	},
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", false
	}
	return sub, true
}
