package tenancy

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTResolverConfig configures the JWT-based account resolver.
type JWTResolverConfig struct {
	// AccountClaim is the JWT claim containing the caller's account id.
	// Default: "account_id"
	AccountClaim string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable
	// behind a trusted gateway that verified them upstream).
	PublicKeyPath string

	// Logger for debugging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// JWTResolver extracts the account id from an Authorization bearer token.
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification
//     (trusted proxy mode)
//
// Token issuance and role-based authorization belong to an external layer;
// this resolver only binds the tenant.
type JWTResolver struct {
	claim     string
	publicKey *rsa.PublicKey
	logger    *slog.Logger
}

// NewJWTResolver creates a JWT-based account resolver.
func NewJWTResolver(cfg JWTResolverConfig) (*JWTResolver, error) {
	if cfg.AccountClaim == "" {
		cfg.AccountClaim = "account_id"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
		}
		publicKey = rsaKey
		cfg.Logger.Info("JWT account resolver: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Info("JWT account resolver: tokens parsed without verification (trusted proxy mode)")
	}

	return &JWTResolver{
		claim:     cfg.AccountClaim,
		publicKey: publicKey,
		logger:    cfg.Logger,
	}, nil
}

// Resolve extracts the account id from the bearer token's account claim.
func (j *JWTResolver) Resolve(r *http.Request) (AccountContext, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return AccountContext{}, fmt.Errorf("authorization bearer token is required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return AccountContext{}, fmt.Errorf("authorization header is not a bearer token")
	}

	claims := jwt.MapClaims{}
	if j.publicKey != nil {
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return j.publicKey, nil
		})
		if err != nil {
			return AccountContext{}, fmt.Errorf("verify token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return AccountContext{}, fmt.Errorf("parse token: %w", err)
		}
	}

	accountID, _ := claims[j.claim].(string)
	if accountID == "" {
		return AccountContext{}, fmt.Errorf("token is missing the %q claim", j.claim)
	}
	if err := validateAccountID(accountID); err != nil {
		return AccountContext{}, err
	}

	subject, _ := claims["sub"].(string)
	return AccountContext{AccountID: accountID, Subject: subject}, nil
}
