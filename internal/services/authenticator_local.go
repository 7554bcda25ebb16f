package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/models"
	pkgauth "github.com/BradenHooton/loginguard/pkg/auth"
	"github.com/google/uuid"
)

// LocalAuthenticator checks credentials against a single bcrypt-hashed admin
// account and issues a JWT. It stands in for the upstream endpoint in development.
type LocalAuthenticator struct {
	identifier   string
	passwordHash string
	decoyHash    string
	tm           *auth.TokenManager
	floor        auth.ResponseFloor
}

// TokenResponse is the body returned by a successful local login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewLocalAuthenticator creates a LocalAuthenticator for identifier and its bcrypt hash
func NewLocalAuthenticator(identifier, passwordHash string, tm *auth.TokenManager, floor auth.ResponseFloor) (*LocalAuthenticator, error) {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: local admin identifier and password hash are required", models.ErrInvalidConfig)
	}

	cost, err := pkgauth.HashCost(passwordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: local admin password hash: %v", models.ErrInvalidConfig, err)
	}

	// Unknown identifiers are checked against a decoy of the same cost
	decoy, err := pkgauth.HashPasswordWithCost(uuid.New().String(), cost)
	if err != nil {
		return nil, err
	}

	return &LocalAuthenticator{
		identifier:   identifier,
		passwordHash: passwordHash,
		decoyHash:    decoy,
		tm:           tm,
		floor:        floor,
	}, nil
}

// Authenticate implements Authenticator
func (a *LocalAuthenticator) Authenticate(ctx context.Context, creds models.Credentials) (*models.LoginResult, error) {
	start := time.Now()

	hash := a.decoyHash
	known := NormalizeIdentifier(creds.Identifier) == a.identifier
	if known {
		hash = a.passwordHash
	}

	if err := pkgauth.ComparePassword(hash, creds.Password); err != nil || !known {
		a.floor.Pad(ctx, start)
		return nil, models.ErrUnauthorized
	}

	token, err := a.tm.GenerateAccessToken(a.identifier)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(a.tm.AccessTokenExpiry() / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token response: %w", err)
	}

	return &models.LoginResult{Identifier: a.identifier, Body: body}, nil
}
