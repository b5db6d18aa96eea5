package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"messaging-service/internal/models"
)

// Identity is the authenticated call context supplied by the platform's
// identity provider through a signed bearer token.
type Identity struct {
	UserID int64
	Role   string
}

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens shared with the identity provider.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared HMAC secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the caller's identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return Identity{}, fmt.Errorf("invalid subject claim")
	}
	if claims.Role != models.RoleTenant && claims.Role != models.RoleLandlord {
		return Identity{}, fmt.Errorf("invalid role claim %q", claims.Role)
	}

	return Identity{UserID: userID, Role: claims.Role}, nil
}
