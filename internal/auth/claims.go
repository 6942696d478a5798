package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for this service. The
// management API has a single operator identity per token; there is no
// tenant or role model.
type Claims struct {
	jwt.RegisteredClaims

	OperatorID string    `json:"operator_id"`
	TokenType  TokenType `json:"token_type"`
}
