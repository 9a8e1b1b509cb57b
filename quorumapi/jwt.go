package quorumapi

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tos-network/gquorum/common"
)

const jwtExpiryTimeout = 60 * time.Second

// LoadJWTSecret reads a hex encoded 32 byte secret from file.
func LoadJWTSecret(file string) ([]byte, error) {
	blob, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	secret := common.FromHex(strings.TrimSpace(string(blob)))
	if len(secret) != 32 {
		return nil, fmt.Errorf("%w: want 32 hex bytes in %s", ErrBadSecret, file)
	}
	return secret, nil
}

// NewToken issues a token naming from as the sender.
func NewToken(secret []byte, from common.Address) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  from.Hex(),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// authenticate returns the sender named by the request's bearer token.
func authenticate(r *http.Request, secret []byte) (common.Address, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return common.Address{}, fmt.Errorf("missing token")
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())

	switch {
	case err != nil:
		return common.Address{}, err
	case !token.Valid:
		return common.Address{}, fmt.Errorf("invalid token")
	case claims.IssuedAt == nil:
		return common.Address{}, fmt.Errorf("missing issued-at")
	case time.Since(claims.IssuedAt.Time) > jwtExpiryTimeout:
		return common.Address{}, fmt.Errorf("stale token")
	case time.Until(claims.IssuedAt.Time) > jwtExpiryTimeout:
		return common.Address{}, fmt.Errorf("future token")
	case !common.IsHexAddress(claims.Subject):
		return common.Address{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return common.HexToAddress(claims.Subject), nil
}

