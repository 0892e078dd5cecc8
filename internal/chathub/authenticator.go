package chathub

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"

	"github.com/go-stomp/stomp/v3/frame"
)

// ErrAccessDenied rejects a CONNECT frame whose token is not valid. The
// STOMP session ends with an ERROR frame.
var ErrAccessDenied = errors.New("access denied")

// TokenValidator is the token capability the authenticator needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) bool
	ExtractUserID(ctx context.Context, token string) (uint, error)
}

// Authenticator checks identity at the WebSocket handshake and again on
// every CONNECT frame. Anonymous connections are always allowed.
type Authenticator struct {
	tokens TokenValidator
}

func NewAuthenticator(tokens TokenValidator) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Handshake never rejects. A token query parameter is kept in the
// attributes; the user id is added only when the token yields one.
func (a *Authenticator) Handshake(r *http.Request) Attributes {
	attrs := Attributes{}
	token := strings.TrimSpace(r.URL.Query().Get(config.TokenQueryParam))
	if token == "" {
		return attrs
	}
	attrs[AttrToken] = token

	userID, err := a.tokens.ExtractUserID(r.Context(), token)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("handshake token rejected, continuing as guest")
		return attrs
	}
	attrs[AttrUserID] = userID
	return attrs
}

// Connect validates the token held in attrs. When the handshake carried
// no token, an "Authorization: Bearer" header on the frame is adopted.
// Without any token the connection stays anonymous.
func (a *Authenticator) Connect(ctx context.Context, attrs Attributes, f *frame.Frame) error {
	token, ok := attrs.Token()
	if !ok {
		if bearer, found := auth.BearerToken(connectHeader(f, hdrAuthorization)); found {
			token, ok = bearer, true
			attrs[AttrToken] = bearer
		}
	}
	if !ok {
		return nil
	}

	if !a.tokens.ValidateToken(ctx, token) {
		delete(attrs, AttrUserID)
		return ErrAccessDenied
	}
	if attrs.UserID() == nil {
		if userID, err := a.tokens.ExtractUserID(ctx, token); err == nil {
			attrs[AttrUserID] = userID
		}
	}
	return nil
}

// connectHeader looks a header up case-insensitively; STOMP clients differ
// in how they spell Authorization.
func connectHeader(f *frame.Frame, name string) string {
	if v, ok := f.Header.Contains(name); ok {
		return v
	}
	for i := 0; i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
