package model

import (
	"strings"

	"github.com/golang-jwt/jwt"
)

// CredentialFormat distinguishes legacy JWT API keys from prefixed keys.
type CredentialFormat int

const (
	// FormatLegacy keys are JWTs and must also be sent as a bearer token.
	FormatLegacy CredentialFormat = iota
	// FormatModern keys carry an sb_ prefix and are sent only as apikey.
	FormatModern
)

// CredentialTier is the privilege level implied by a credential.
type CredentialTier int

const (
	TierUnknown CredentialTier = iota
	TierPublic
	TierPrivileged
)

const (
	publishableKeyPrefix = "sb_publishable_"
	secretKeyPrefix      = "sb_secret_"

	roleAnon    = "anon"
	roleService = "service_role"
)

// Credential is an API key together with its detected format and tier.
type Credential struct {
	Key    string
	Format CredentialFormat
	Tier   CredentialTier
}

// ClassifyCredential inspects a key without contacting the remote project.
// Legacy JWTs are decoded without signature verification; only the role claim
// is read.
func ClassifyCredential(key string) Credential {
	key = strings.TrimSpace(key)
	switch {
	case strings.HasPrefix(key, secretKeyPrefix):
		return Credential{Key: key, Format: FormatModern, Tier: TierPrivileged}
	case strings.HasPrefix(key, publishableKeyPrefix):
		return Credential{Key: key, Format: FormatModern, Tier: TierPublic}
	}

	return Credential{Key: key, Format: FormatLegacy, Tier: legacyTier(key)}
}

func legacyTier(token string) CredentialTier {
	if strings.Count(token, ".") != 2 {
		return TierUnknown
	}

	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return TierUnknown
	}

	role, _ := claims["role"].(string)
	switch role {
	case roleAnon:
		return TierPublic
	case roleService:
		return TierPrivileged
	default:
		return TierUnknown
	}
}

// IsPrivileged reports whether the credential bypasses row level security.
func (c Credential) IsPrivileged() bool {
	return c.Tier == TierPrivileged
}

// Headers returns the authentication headers for a request made with c.
func (c Credential) Headers() map[string]string {
	h := map[string]string{"apikey": c.Key}
	if c.Format == FormatLegacy {
		h["Authorization"] = "Bearer " + c.Key
	}
	return h
}
