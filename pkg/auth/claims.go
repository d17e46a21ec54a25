package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	Email  string
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by customers,
// wholesale buyers and admins.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	Email  string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the audit identity for the token holder, such as "admin:<id>".
func (c *AccessTokenClaims) Actor() string {
	if c == nil {
		return "anonymous"
	}
	return string(c.Role) + ":" + c.UserID.String()
}
