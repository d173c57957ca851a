package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedToken is returned when a token cannot be decoded.
	ErrMalformedToken = errors.New("storage: malformed download token")
	// ErrBadSignature is returned when the token MAC does not match.
	ErrBadSignature = errors.New("storage: invalid download token signature")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("storage: download token expired")
	// ErrSignerUnconfigured is returned when no secret was provided.
	ErrSignerUnconfigured = errors.New("storage: signing secret missing")
)

// Grant is what a download token vouches for.
type Grant struct {
	Subject   string
	Path      string
	ExpiresAt time.Time
}

// Signer issues and verifies HMAC-signed download tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a Signer. A non-positive ttl falls back to one day.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token granting access to path on behalf of subject.
func (s *Signer) Sign(subject, path string) (string, Grant, error) {
	if subject == "" || path == "" {
		return "", Grant{}, errors.New("storage: subject and path required")
	}
	if len(s.secret) == 0 {
		return "", Grant{}, ErrSignerUnconfigured
	}
	grant := Grant{Subject: subject, Path: path, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	body := strings.Join([]string{
		encodeSegment(subject),
		strconv.FormatInt(grant.ExpiresAt.Unix(), 36),
		encodeSegment(path),
	}, ".")
	return body + "." + s.mac(body), grant, nil
}

// Verify checks the token signature and returns its grant. allowExpired is
// for cleanup routines that need the path of a stale token.
func (s *Signer) Verify(token string, allowExpired bool) (Grant, error) {
	if len(s.secret) == 0 {
		return Grant{}, ErrSignerUnconfigured
	}
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return Grant{}, ErrMalformedToken
	}
	body, sig := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.mac(body)), []byte(sig)) {
		return Grant{}, ErrBadSignature
	}

	parts := strings.Split(body, ".")
	if len(parts) != 3 {
		return Grant{}, ErrMalformedToken
	}
	subject, err := decodeSegment(parts[0])
	if err != nil {
		return Grant{}, err
	}
	exp, err := strconv.ParseInt(parts[1], 36, 64)
	if err != nil {
		return Grant{}, ErrMalformedToken
	}
	path, err := decodeSegment(parts[2])
	if err != nil {
		return Grant{}, err
	}

	grant := Grant{Subject: subject, Path: path, ExpiresAt: time.Unix(exp, 0)}
	if !allowExpired && !s.now().Before(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *Signer) mac(body string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func encodeSegment(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decodeSegment(v string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil || len(raw) == 0 {
		return "", ErrMalformedToken
	}
	return string(raw), nil
}
