package auth

import (
	"context"
	"fmt"
	"time"

	"camerashop/backend/internal/logging"
)

// Guard combines signature checks with the revocation store. It is the
// token capability the chat core and the HTTP layer consume.
type Guard struct {
	Tokens    *TokenService
	Blacklist Blacklist
}

func NewGuard(tokens *TokenService, blacklist Blacklist) *Guard {
	return &Guard{Tokens: tokens, Blacklist: blacklist}
}

// Authenticate returns the claims of a valid, unrevoked token. A failing
// revocation lookup is treated as revoked.
func (g *Guard) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := g.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if g.Blacklist != nil {
		revoked, err := g.Blacklist.IsRevoked(ctx, token)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("token revocation lookup failed")
			return nil, fmt.Errorf("%w: revocation lookup: %v", ErrTokenRevoked, err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

func (g *Guard) ValidateToken(ctx context.Context, token string) bool {
	_, err := g.Authenticate(ctx, token)
	return err == nil
}

func (g *Guard) ExtractUserID(ctx context.Context, token string) (uint, error) {
	claims, err := g.Authenticate(ctx, token)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// Revoke blacklists a valid token until its expiry.
func (g *Guard) Revoke(ctx context.Context, token string) error {
	claims, err := g.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	until := time.Now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return g.Blacklist.Revoke(ctx, token, until)
}
