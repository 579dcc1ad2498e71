package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// DefaultTokenTTL is the session token lifetime used when none is configured.
const DefaultTokenTTL = 86400 * time.Second

// Claims is the payload of a session token.  The JSON names are part of the
// wire contract with existing clients.  iat and exp come from the embedded
// registered claims and are encoded as integer seconds.
type Claims struct {
	ID    int64  `json:"id"`
	Email string `json:"correo"`
	Role  string `json:"rol"`
	Name  string `json:"nombre"`
	jwt.RegisteredClaims
}

// AccessToken is a signed session token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec issues and verifies HS256 session tokens.  A codec is immutable
// after construction and safe for concurrent use.
type TokenCodec struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec builds a codec keyed by secret.  A non-positive ttl falls back
// to DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	c := &TokenCodec{key: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for id.  iat is the current second and exp is iat plus
// the codec TTL.
func (c *TokenCodec) Issue(id Identity) (AccessToken, error) {
	iat := c.now().UTC().Truncate(time.Second)
	exp := iat.Add(c.ttl)
	claims := Claims{
		ID:    id.ID,
		Email: id.Email,
		Role:  string(id.Role),
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature, expiry and claim shape of raw and returns the
// identity it asserts.  Every failure wraps ErrInvalidToken.
func (c *TokenCodec) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	tok, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Identity{}, invalidToken(err.Error())
	}
	if !tok.Valid {
		return Identity{}, invalidToken("token not valid")
	}
	if claims.IssuedAt == nil {
		return Identity{}, invalidToken("missing iat claim")
	}
	if claims.ID <= 0 {
		return Identity{}, invalidToken("missing or non-positive id claim")
	}
	if claims.Email == "" {
		return Identity{}, invalidToken("missing correo claim")
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, invalidToken("unknown rol claim")
	}
	return Identity{ID: claims.ID, Email: claims.Email, Name: claims.Name, Role: role}, nil
}
