package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// SigningMethod names the HMAC variant used to sign tokens.
type SigningMethod string

const (
	MethodHS256 SigningMethod = "HS256"
	MethodHS384 SigningMethod = "HS384"
	MethodHS512 SigningMethod = "HS512"
)

var (
	// ErrInvalidToken means the token is structurally or cryptographically invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired means the token was valid but its expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrWrongKind means a valid token of the wrong kind was presented.
	ErrWrongKind = errors.New("wrong token kind")
)

// Config configures a Codec.
type Config struct {
	Secret     []byte
	Method     SigningMethod // defaults to HS256
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration

	// KeyID is written to the "kid" header of issued tokens. VerifyKeys, when
	// set, selects the verification secret by kid; this allows rotating
	// Secret while older tokens are still in circulation.
	KeyID      string
	VerifyKeys map[string][]byte

	// Now is the clock used for issuance and expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the verified payload of a token.
type Claims struct {
	Kind Kind   `json:"type"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. It holds no mutable state.
type Codec struct {
	cfg    Config
	method jwt.SigningMethod
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt: secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: token TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: leeway must be within [0, 2m]")
	}
	if cfg.Method == "" {
		cfg.Method = MethodHS256
	}
	method := jwt.GetSigningMethod(string(cfg.Method))
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.Method)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" || len(key) == 0 {
			return nil, errors.New("jwt: verify keys must have non-empty kid and secret")
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("jwt: KeyID is not present in VerifyKeys")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{cfg: cfg, method: method}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssueAccess returns a short-lived access token for subject.
func (c *Codec) IssueAccess(subject, role string) (string, error) {
	return c.issue(KindAccess, subject, role, c.cfg.AccessTTL)
}

// IssueRefresh returns a long-lived refresh token for subject.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.issue(KindRefresh, subject, "", c.cfg.RefreshTTL)
}

func (c *Codec) issue(kind Kind, subject, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("jwt: subject is required")
	}

	now := c.cfg.Now()
	claims := Claims{
		Kind: kind,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(c.method, claims)
	if c.cfg.KeyID != "" {
		token.Header["kid"] = c.cfg.KeyID
	}
	return token.SignedString(c.cfg.Secret)
}

// Verify checks signature and expiry and returns the claims.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.cfg.Now),
	}
	if c.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.cfg.Leeway))
	}
	if c.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, c.keyFunc)
	if err != nil {
		// The parser only reaches claim validation after the signature
		// verified, so an expiry error here implies an authentic token.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyKind is Verify plus a check that the token is of the expected kind.
func (c *Codec) VerifyKind(tokenStr string, want Kind) (*Claims, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != want {
		return nil, ErrWrongKind
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(c.cfg.VerifyKeys) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := c.cfg.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}
	if c.cfg.KeyID != "" && kid != c.cfg.KeyID {
		return nil, errors.New("unknown kid")
	}
	return c.cfg.Secret, nil
}
