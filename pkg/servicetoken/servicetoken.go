package servicetoken

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing bearer token")
)

const subject = "service"

// Signer issues and checks short-lived HS256 tokens shared between the service and its functions.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. An empty secret is rejected by Sign and Verify.
func NewSigner(secret, issuer string, ttl time.Duration) *Signer {
	return &Signer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a fresh bearer token.
func (s *Signer) Sign() (string, error) {
	if len(s.secret) == 0 {
		return "", ErrInvalidToken
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, issuer and expiry.
func (s *Signer) Verify(tokenString string) error {
	if len(s.secret) == 0 {
		return ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}

		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithSubject(subject),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}

		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}

// Middleware rejects requests without a valid bearer token.
func (s *Signer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearer(r)
		if err == nil {
			err = s.Verify(token)
		}
		if err != nil {
			slog.Warn("Rejected service request", "path", r.URL.Path, "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingToken
	}

	return token, nil
}
