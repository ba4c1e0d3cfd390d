package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTResolver validates self-issued HS256 tokens.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (r *JWTResolver) Resolve(ctx context.Context, credential string) (uint64, error) {
	_ = ctx

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return 0, ErrUnauthenticated
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthenticated
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrUnauthenticated
	}

	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || uid == 0 {
		return 0, ErrUnauthenticated
	}
	return uid, nil
}
