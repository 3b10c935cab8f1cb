package datalake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Protocol constants. The server re-derives the same chain, so none of these
// are configurable.
const (
	SigningPrefix     = "DATALAKE4"
	ServiceName       = "datalake"
	RequestTerminator = "datalake4_request"
	DateFormat        = "20060102"

	AuthHeader = "Auth"
	AuthScheme = "ak"
)

// SigningContext is the scope a derived key is valid for.
type SigningContext struct {
	DateStamp    string
	EndpointHost string
}

// SecretStore resolves an access key to its secret key.
type SecretStore interface {
	Lookup(accessKey string) (secretKey string, err error)
}

// Signer produces auth tokens for one set of credentials.
type Signer struct {
	creds Credentials
	now   func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the signer's time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a signer. Credentials are validated here so that Sign
// itself cannot fail.
func NewSigner(creds Credentials, opts ...SignerOption) (*Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	s := &Signer{
		creds: creds,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Credentials returns the credentials the signer was built with.
func (s *Signer) Credentials() Credentials {
	return s.creds
}

// Context returns the signing scope for t.
func (s *Signer) Context(t time.Time) SigningContext {
	return SigningContext{
		DateStamp:    t.UTC().Format(DateFormat),
		EndpointHost: s.creds.EndpointHost,
	}
}

// Sign returns the auth token valid for the UTC day containing t.
func (s *Signer) Sign(t time.Time) string {
	sc := s.Context(t)
	signature := DeriveSignature(s.creds.SecretKey, sc.DateStamp, sc.EndpointHost)
	return EncodeToken(s.creds.AccessKey, signature)
}

// Token signs with the current time.
func (s *Signer) Token() string {
	return s.Sign(s.now())
}

// DeriveSignature runs the derived-key chain. Every intermediate digest is
// base64 encoded before it is used as the next key.
func DeriveSignature(secretKey, dateStamp, endpointHost string) string {
	kDate := hmacSHA256([]byte(SigningPrefix+secretKey), dateStamp)
	kEndpoint := hmacSHA256(b64(kDate), endpointHost)
	kService := hmacSHA256(b64(kEndpoint), ServiceName)
	kSigning := hmacSHA256(b64(kService), RequestTerminator)
	return string(b64(kSigning))
}

// EncodeToken joins identity and signature and base64 encodes the result.
func EncodeToken(accessKey, signature string) string {
	return base64.StdEncoding.EncodeToString([]byte(accessKey + ":" + signature))
}

// DecodeToken splits a token into identity and signature.
func DecodeToken(token string) (accessKey, signature string, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("decode token: %w", ErrUnauthorized)
	}
	// base64 signatures never contain ':', identities might
	i := strings.LastIndexByte(string(raw), ':')
	if i <= 0 || i == len(raw)-1 {
		return "", "", fmt.Errorf("invalid token format: %w", ErrUnauthorized)
	}
	return string(raw[:i]), string(raw[i+1:]), nil
}

// AuthHeaderValue formats a token for the Auth header.
func AuthHeaderValue(token string) string {
	return AuthScheme + ":" + token
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func b64(b []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out
}

// TokenVerifier checks Auth headers the way the data lake API does.
type TokenVerifier struct {
	EndpointHost string
	Store        SecretStore
	Now          func() time.Time
}

// NewTokenVerifier creates a verifier for tokens scoped to endpointHost.
func NewTokenVerifier(endpointHost string, store SecretStore) *TokenVerifier {
	return &TokenVerifier{
		EndpointHost: endpointHost,
		Store:        store,
		Now:          time.Now,
	}
}

// Verify validates an Auth header value of the form "ak:<token>" and returns
// the caller's access key.
//
// The token is recomputed for the verifier's host and the current UTC date, so
// tokens from another deployment or another day are rejected.
func (v *TokenVerifier) Verify(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing %s header: %w", AuthHeader, ErrUnauthorized)
	}

	scheme, token, ok := strings.Cut(header, ":")
	if !ok || scheme != AuthScheme || token == "" {
		return "", fmt.Errorf("invalid auth scheme: %w", ErrUnauthorized)
	}

	accessKey, signature, err := DecodeToken(token)
	if err != nil {
		return "", err
	}

	secretKey, err := v.Store.Lookup(accessKey)
	if err != nil {
		return "", fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	expected := DeriveSignature(secretKey, now().UTC().Format(DateFormat), v.EndpointHost)

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return accessKey, nil
}
