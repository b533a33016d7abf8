package tokens

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/denteo/clinic-auth/internal/models"
)

// Claim schemas are explicit structs so an unexpected payload fails parsing
// instead of being trusted as map values.

type AccessClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}
