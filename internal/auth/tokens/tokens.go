package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// KeyID is set as the kid header of every issued token.
const KeyID = "carbon-ledger-key-1"

const issuer = "carbon-ledger"

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the envelope carrying the UserContext fields under types.ClaimKey.
type SessionClaims struct {
	Claim map[string]interface{} `json:"claim"`
	jwt.RegisteredClaims
}

// Issued is a freshly signed session token.
type Issued struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

// CreateTokenWithKey signs an ES256 session token for user that expires after ttl.
func CreateTokenWithKey(user types.UserContext, ttl time.Duration, privateKeyPEM string) (*Issued, error) {
	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	jti, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    issuer,
			Subject:   user.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Claim: map[string]interface{}{
			types.HeaderUID: user.UserID.String(),
			"username":      user.Username,
			"email":         user.Email,
			"isAdmin":       user.IsAdmin,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = KeyID

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return nil, err
	}
	return &Issued{Token: signed, SessionID: jti.String(), ExpiresAt: expiresAt}, nil
}

// Verifier validates session tokens against one public key.
type Verifier struct {
	publicKey interface{}
}

// NewVerifier parses the EC public key once.
func NewVerifier(publicKeyPEM string) (*Verifier, error) {
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	return &Verifier{publicKey: key}, nil
}

// Verify checks the signature and expiry and returns the caller with the token's expiry.
func (v *Verifier) Verify(tokenString string) (types.UserContext, time.Time, error) {
	var user types.UserContext

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return user, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return user, time.Time{}, ErrInvalidToken
	}

	user, err = mapToUserContext(claims.Claim)
	if err != nil {
		return user, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user.SessionID = claims.ID
	return user, claims.ExpiresAt.Time, nil
}

func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var user types.UserContext

	uidStr, ok := claimData[types.HeaderUID].(string)
	if !ok {
		return user, errors.New("missing or invalid uid in claim")
	}
	userID, err := uuid.FromString(uidStr)
	if err != nil {
		return user, fmt.Errorf("invalid user ID: %v", err)
	}
	user.UserID = userID

	if username, ok := claimData["username"].(string); ok {
		user.Username = username
	}
	if email, ok := claimData["email"].(string); ok {
		user.Email = email
	}
	if isAdmin, ok := claimData["isAdmin"].(bool); ok {
		user.IsAdmin = isAdmin
	}
	return user, nil
}
