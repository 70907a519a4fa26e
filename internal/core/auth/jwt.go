package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-gin-gorm-useradmin/internal/domain"
)

type Claims struct {
	UID  int64  `json:"uid"`
	Role string `json:"role"` // access_type: "user" or "admin"
	jwt.RegisteredClaims
}

func (c *Claims) Principal() domain.Principal {
	return domain.Principal{ID: c.UID, AccessType: domain.AccessType(c.Role)}
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func (j *JWTer) Issue(p domain.Principal) (string, error) {
	if p.ID == 0 {
		return "", errors.New("issue token: empty principal")
	}
	now := time.Now()
	claims := Claims{
		UID:  p.ID,
		Role: string(p.AccessType),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   fmt.Sprint(p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.UID != 0 {
		return c, nil
	}
	return nil, errors.New("invalid token")
}
