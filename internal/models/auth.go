package models

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is what the caller submits to log in
type Credentials struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// TokenClaims are the claims carried by tokens issued in local mode
type TokenClaims struct {
	Type    string `json:"type"`
	Subject string `json:"sub_identifier"`
	jwt.RegisteredClaims
}

// LoginResult is returned on a successful login.
// Body holds the authenticator's response, forwarded as-is.
type LoginResult struct {
	Identifier string          `json:"identifier"`
	Body       json.RawMessage `json:"result"`
}
