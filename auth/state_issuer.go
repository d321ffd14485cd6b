package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	stateIssuer   = "phase-session"
	stateKeyInfo  = "phase-session oauth state v1"
	stateKeyBytes = 32
)

// StateIssuer mints and checks the OAuth state nonce. A state is a short
// lived HS256 token, so a redirect carrying a forged or stale state is
// rejected even if it happens to equal a previously issued value.
type StateIssuer struct {
	key     []byte
	ttl     time.Duration
	nowTime func() time.Time
}

// StateIssuerOption configures a StateIssuer.
type StateIssuerOption func(*StateIssuer)

// WithStateNowTime sets the clock (primarily for testing)
func WithStateNowTime(nowFunc func() time.Time) StateIssuerOption {
	return func(si *StateIssuer) {
		si.nowTime = nowFunc
	}
}

// NewStateIssuer derives the signing key from secret with HKDF. An empty
// secret gets a random per-process key.
func NewStateIssuer(secret string, ttl time.Duration, options ...StateIssuerOption) (*StateIssuer, error) {
	if ttl <= 0 {
		return nil, errors.New("[NewStateIssuer] ttl must be positive")
	}

	ikm := []byte(secret)
	if secret == "" {
		ikm = make([]byte, stateKeyBytes)
		if _, err := rand.Read(ikm); err != nil {
			return nil, errors.Wrap(err, "[NewStateIssuer] rand.Read")
		}
	}

	key := make([]byte, stateKeyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(stateKeyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "[NewStateIssuer] hkdf")
	}

	si := &StateIssuer{
		key:     key,
		ttl:     ttl,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(si)
	}
	return si, nil
}

// Issue returns a new signed state value.
func (si *StateIssuer) Issue() (string, error) {
	now := si.nowTime()
	claims := jwtlib.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    stateIssuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(si.ttl)),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(si.key)
	if err != nil {
		return "", errors.Wrap(err, "[StateIssuer.Issue] SignedString")
	}
	return signed, nil
}

// Validate checks the signature, issuer and expiry of state.
func (si *StateIssuer) Validate(state string) error {
	_, err := jwtlib.ParseWithClaims(state, &jwtlib.RegisteredClaims{},
		func(*jwtlib.Token) (interface{}, error) { return si.key, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(stateIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(si.nowTime),
	)
	if err != nil {
		return errors.Wrapf(ErrInvalidState, "[StateIssuer.Validate] %v", err)
	}
	return nil
}
