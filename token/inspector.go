package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the verification algorithm.
type SigningMethod string

const (
	// MethodNone inspects claims without verifying the signature.
	MethodNone    SigningMethod = ""
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

// Config controls how strictly tokens are verified before their claims are trusted.
//
// With MethodNone the claims are read as-is. This matches the common case of a client that
// received the token directly from the provider over TLS and has no provider key.
type Config struct {
	SigningMethod SigningMethod
	// Key is the HS256 secret or the Ed25519 public key (raw or PEM).
	Key      []byte
	Issuer   string
	Audience string
}

// ProfileClaims are the identity claims a provider places in an ID token.
type ProfileClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the email claim, falling back to the subject.
func (c ProfileClaims) AccountID() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// Inspector reads expiry and profile claims from credential tokens.
//
// Inspector is immutable after construction and safe for concurrent use.
type Inspector struct {
	config    Config
	verifyKey interface{}
}

// NewInspector validates cfg and returns an [Inspector].
func NewInspector(cfg Config) (*Inspector, error) {
	in := &Inspector{config: cfg}
	switch cfg.SigningMethod {
	case MethodNone:
		if len(cfg.Key) > 0 {
			return nil, errors.New("key configured without a signing method")
		}
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a key")
		}
		in.verifyKey = cfg.Key
	case MethodEd25519:
		pub, err := parseEdPublicKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		in.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}
	return in, nil
}

// IsJWT reports whether raw has the three-segment compact JWS shape.
func IsJWT(raw string) bool {
	if strings.Count(raw, ".") != 2 {
		return false
	}
	for _, seg := range strings.Split(raw, ".")[:2] {
		if seg == "" {
			return false
		}
	}
	return true
}

// Expiry returns the exp claim of a JWT.
//
// Opaque tokens and JWTs without exp report ok=false and no error. An expired token is
// not an error.
func (in *Inspector) Expiry(raw string) (time.Time, bool, error) {
	if !IsJWT(raw) {
		return time.Time{}, false, nil
	}
	claims, err := in.parse(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time.UTC(), true, nil
}

// Profile returns the identity claims of a JWT.
func (in *Inspector) Profile(raw string) (ProfileClaims, error) {
	if !IsJWT(raw) {
		return ProfileClaims{}, ErrOpaque
	}
	claims, err := in.parse(raw)
	if err != nil {
		return ProfileClaims{}, err
	}
	return *claims, nil
}

func (in *Inspector) parse(raw string) (*ProfileClaims, error) {
	claims := &ProfileClaims{}
	if in.verifyKey == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return claims, nil
	}

	// Claims validation is off so an expired token still yields its expiry.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{in.method().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return in.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	if in.config.Issuer != "" && claims.Issuer != in.config.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUnverified, claims.Issuer)
	}
	if in.config.Audience != "" && !slices.Contains(claims.Audience, in.config.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrUnverified)
	}
	return claims, nil
}

func (in *Inspector) method() jwt.SigningMethod {
	if in.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
