package httptransport

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"issuer-agent/internal/account"
	"issuer-agent/internal/platform/middleware"
	"issuer-agent/pkg/sentinel"
)

// Authenticator resolves bearer credentials for the auth middleware. A
// credential containing dots is treated as a JWT session; anything else as
// the account's long-lived token.
type Authenticator struct {
	accounts *account.Service
	tokens   *account.TokenService
}

func NewAuthenticator(accounts *account.Service, tokens *account.TokenService) *Authenticator {
	return &Authenticator{accounts: accounts, tokens: tokens}
}

func (a *Authenticator) AuthenticateRequest(ctx context.Context, credential string) (*middleware.Principal, error) {
	if strings.Count(credential, ".") == 2 {
		claims, err := a.tokens.ValidateSessionToken(credential)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(claims.AccountID)
		if err != nil {
			return nil, err
		}
		acc, err := a.accounts.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !acc.Active {
			return nil, fmt.Errorf("account %s deactivated: %w", acc.ID, sentinel.ErrUnauthorized)
		}
		return &middleware.Principal{AccountID: acc.ID.String(), Address: acc.Address}, nil
	}

	acc, err := a.accounts.Authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{AccountID: acc.ID.String(), Address: acc.Address}, nil
}

var _ middleware.Authenticator = (*Authenticator)(nil)
