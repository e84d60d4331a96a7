package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/auth/tokens"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/internal/types"
	"github.com/stretchr/testify/require"
)

// GenerateECDSAKeyPairPEM generates a P-256 key pair for signing test tokens.
// Returns (publicKeyPEM, privateKeyPEM).
func GenerateECDSAKeyPairPEM(t *testing.T) (string, string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err, "Failed to marshal ECDSA private key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return string(pubPEM), string(privPEM)
}

// NewTestConfig returns a memory-backed configuration with a fresh key pair.
// overrides are applied on top of the defaults.
func NewTestConfig(t *testing.T, overrides map[string]string) *platformconfig.Config {
	t.Helper()
	pub, priv := GenerateECDSAKeyPairPEM(t)
	env := map[string]string{
		"DB_TYPE":         "memory",
		"JWT_PUBLIC_KEY":  pub,
		"JWT_PRIVATE_KEY": priv,
		"CACHE_ENABLED":   "true",
		"CACHE_BACKEND":   "memory",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := platformconfig.LoadFromMap(env)
	require.NoError(t, err)
	return cfg
}

// IssueToken signs a session token for user with the configuration's key.
func IssueToken(t *testing.T, cfg *platformconfig.Config, user types.UserContext) string {
	t.Helper()
	issued, err := tokens.CreateTokenWithKey(user, time.Hour, cfg.JWT.PrivateKey)
	require.NoError(t, err)
	return issued.Token
}
