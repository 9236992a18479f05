package login

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	stateIssuer   = "declaraciones"
	stateAudience = "login-state"
)

var (
	ErrStateInvalid = errors.New("invalid state token")
	ErrStateExpired = errors.New("state token expired")
)

// StateClaims son los claims del parámetro state del login.
type StateClaims struct {
	Nonce string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// StateSigner firma y valida el state con HS256.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign emite un state ligado a nonce.
func (s *StateSigner) Sign(nonce string) (string, error) {
	now := s.now().UTC()
	claims := StateClaims{
		Nonce: nonce,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    stateIssuer,
			Audience:  jwtv5.ClaimStrings{stateAudience},
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse valida firma, emisor, audiencia y expiración.
func (s *StateSigner) Parse(token string) (*StateClaims, error) {
	var claims StateClaims
	_, err := jwtv5.ParseWithClaims(token, &claims,
		func(*jwtv5.Token) (any, error) { return s.key, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(stateIssuer),
		jwtv5.WithAudience(stateAudience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	if claims.Nonce == "" {
		return nil, ErrStateInvalid
	}
	return &claims, nil
}
