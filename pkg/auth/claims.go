package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hmkwon/dishpatch-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	StoreID  *uuid.UUID
	Nickname string
	JTI      string
}

// AccessTokenClaims represents the typed JWT accepted from clients. Token
// issuance belongs to the external auth service; the same claim shape is
// minted here only for tests and local tooling.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     enums.ActorRole `json:"role"`
	StoreID  *uuid.UUID      `json:"store_id,omitempty"`
	Nickname string          `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}
