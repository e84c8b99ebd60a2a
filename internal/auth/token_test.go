package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "helpdesk", 5)
	token, _, err := tm.GenerateToken("u-1", domain.RoleTech)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleTech, claims.Role)
}

func TestParseTokenRejectsForeignSecretAndIssuer(t *testing.T) {
	token, _, err := NewTokenManager("other", "helpdesk", 5).GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "helpdesk", 5).ParseToken(token)
	assert.Error(t, err)

	token, _, err = NewTokenManager("secret", "elsewhere", 5).GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", "helpdesk", 5).ParseToken(token)
	assert.Error(t, err)
}
