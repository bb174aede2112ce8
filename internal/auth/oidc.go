package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-theatre/internal/models"
)

// OIDCVerifier accepts ID tokens from an external identity provider. Staff
// status comes from the configured realm role.
type OIDCVerifier struct {
	verifier  *oidc.IDTokenVerifier
	adminRole string
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID, adminRole string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	cfg := &oidc.Config{ClientID: clientID, SkipClientIDCheck: clientID == ""}
	return &OIDCVerifier{verifier: provider.Verifier(cfg), adminRole: adminRole}, nil
}

type oidcClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims", models.ErrUnauthenticated)
	}
	return identityFromOIDC(claims, v.adminRole), nil
}

func identityFromOIDC(c oidcClaims, adminRole string) *models.Identity {
	id := &models.Identity{UserID: c.Sub, Email: c.Email}
	for _, role := range c.RealmAccess.Roles {
		if role == adminRole {
			id.IsStaff = true
			break
		}
	}
	return id
}

// Chain tries each verifier in turn and returns the first identity.
type Chain []TokenVerifier

func (c Chain) Verify(ctx context.Context, token string) (*models.Identity, error) {
	var lastErr error = models.ErrUnauthenticated
	for _, v := range c {
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
