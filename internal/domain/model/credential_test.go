package model

import (
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRoleToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "supabase",
		"role": role,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestClassifyCredential_ModernKeys(t *testing.T) {
	pub := ClassifyCredential("sb_publishable_abc123")
	assert.Equal(t, FormatModern, pub.Format)
	assert.Equal(t, TierPublic, pub.Tier)
	assert.False(t, pub.IsPrivileged())

	secret := ClassifyCredential("sb_secret_abc123")
	assert.Equal(t, FormatModern, secret.Format)
	assert.Equal(t, TierPrivileged, secret.Tier)
	assert.True(t, secret.IsPrivileged())
}

func TestClassifyCredential_LegacyRoles(t *testing.T) {
	anon := ClassifyCredential(signedRoleToken(t, "anon"))
	assert.Equal(t, FormatLegacy, anon.Format)
	assert.Equal(t, TierPublic, anon.Tier)

	service := ClassifyCredential(signedRoleToken(t, "service_role"))
	assert.Equal(t, FormatLegacy, service.Format)
	assert.Equal(t, TierPrivileged, service.Tier)

	other := ClassifyCredential(signedRoleToken(t, "authenticated"))
	assert.Equal(t, TierUnknown, other.Tier)
}

func TestClassifyCredential_Opaque(t *testing.T) {
	c := ClassifyCredential("not-a-jwt")
	assert.Equal(t, FormatLegacy, c.Format)
	assert.Equal(t, TierUnknown, c.Tier)

	c = ClassifyCredential("a.b.c")
	assert.Equal(t, TierUnknown, c.Tier)
}

func TestCredentialHeaders(t *testing.T) {
	legacy := ClassifyCredential("eyJ.legacy.key")
	assert.Equal(t, map[string]string{
		"apikey":        "eyJ.legacy.key",
		"Authorization": "Bearer eyJ.legacy.key",
	}, legacy.Headers())

	modern := ClassifyCredential("sb_secret_xyz")
	assert.Equal(t, map[string]string{"apikey": "sb_secret_xyz"}, modern.Headers())
}
