package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-useradmin/internal/domain"
)

func newJWTer() *JWTer {
	return &JWTer{Secret: []byte("test-secret"), Issuer: "useradmin", TTL: time.Hour}
}

func TestIssueAndParse(t *testing.T) {
	j := newJWTer()
	tok, err := j.Issue(domain.Principal{ID: 12, AccessType: domain.AccessAdmin})
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: 12, AccessType: domain.AccessAdmin}, c.Principal())
	assert.Equal(t, "12", c.Subject)
}

func TestParseRejects(t *testing.T) {
	j := newJWTer()
	tok, err := j.Issue(domain.Principal{ID: 1, AccessType: domain.AccessUser})
	require.NoError(t, err)

	other := &JWTer{Secret: []byte("other"), Issuer: "useradmin", TTL: time.Hour}
	_, err = other.Parse(tok)
	assert.Error(t, err, "wrong secret")

	wrongIss := &JWTer{Secret: j.Secret, Issuer: "someone-else", TTL: time.Hour}
	_, err = wrongIss.Parse(tok)
	assert.Error(t, err, "wrong issuer")

	expired := &JWTer{Secret: j.Secret, Issuer: j.Issuer, TTL: -2 * time.Minute}
	old, err := expired.Issue(domain.Principal{ID: 1})
	require.NoError(t, err)
	_, err = j.Parse(old)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = j.Parse("not.a.token")
	assert.Error(t, err)
}

func TestIssueRequiresPrincipal(t *testing.T) {
	_, err := newJWTer().Issue(domain.Principal{})
	assert.Error(t, err)
}
