// Package signature implements the canonical request scheme the payment
// gateway verifies. A request is reduced to the byte-exact string
//
//	METHOD + ":" + resourcePath + ":" + lowercase-hex(SHA-256(canonicalBody)) + ":" + timestamp
//
// and signed with the partner's RSA key (PKCS#1 v1.5, SHA-256, base64).
// The body digest is computed over canonical JSON so that semantically
// identical payloads always produce identical signatures regardless of
// object key order.
package signature

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// TimestampLayout is the only timestamp shape the gateway accepts:
// ISO-8601 with second precision and an explicit UTC offset.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// EmptyBodySentinel is the canonical form of a request without a body.
// The gateway hashes the minified empty object, never the empty string.
const EmptyBodySentinel = "{}"

// Material captures the inputs that bind a signature to one request.
type Material struct {
	Method        string
	ResourcePath  string
	CanonicalBody []byte
	Timestamp     time.Time
}

// Signer produces the X-SIGNATURE value for a request.
type Signer interface {
	Sign(ctx context.Context, material Material) (string, error)
}

// Verifier validates the authenticity of a signed request. The remote
// gateway is assumed to honor this contract; local implementations back
// tests and sandbox fakes.
type Verifier interface {
	Verify(ctx context.Context, material Material, signature string) error
}

// VerifierFunc lifts bare functions into [Verifier].
type VerifierFunc func(ctx context.Context, material Material, signature string) error

// Verify delegates to the wrapped function.
func (f VerifierFunc) Verify(ctx context.Context, material Material, signature string) error {
	return f(ctx, material, signature)
}

// CanonicalizeJSONBody normalizes arbitrary JSON into canonical form for
// signing. Empty input canonicalizes to [EmptyBodySentinel].
func CanonicalizeJSONBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte(EmptyBodySentinel), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("signature: multiple JSON documents in body")
	}
	return canonicaljson.Marshal(payload)
}

// CanonicalizeValue marshals a Go value straight to canonical JSON.
func CanonicalizeValue(v any) ([]byte, error) {
	if v == nil {
		return []byte(EmptyBodySentinel), nil
	}
	return canonicaljson.Marshal(v)
}

// FormatTimestamp renders t in the gateway's single accepted layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp accepts exactly [TimestampLayout]. Fractional seconds,
// a trailing Z, or any other shape fail with an error.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("signature: empty timestamp")
	}
	ts, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("signature: timestamp must match %s: %w", TimestampLayout, err)
	}
	return ts, nil
}

// StringToSign builds the canonical string for material. It is pure:
// identical material always yields identical bytes.
func StringToSign(material Material) string {
	body := material.CanonicalBody
	if len(body) == 0 {
		body = []byte(EmptyBodySentinel)
	}
	digest := sha256.Sum256(body)
	var b strings.Builder
	b.WriteString(material.Method)
	b.WriteByte(':')
	b.WriteString(material.ResourcePath)
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(digest[:]))
	b.WriteByte(':')
	b.WriteString(FormatTimestamp(material.Timestamp))
	return b.String()
}

// AbsDuration returns the absolute value of the supplied duration.
func AbsDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// RSASigner signs canonical strings with the partner private key.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner wraps an already-parsed private key.
func NewRSASigner(key *rsa.PrivateKey) (*RSASigner, error) {
	if key == nil {
		return nil, errors.New("signature: private key is required")
	}
	return &RSASigner{key: key}, nil
}

// Sign implements [Signer] by signing the canonical string for material.
func (s *RSASigner) Sign(ctx context.Context, material Material) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.SignRaw([]byte(StringToSign(material)))
}

// SignRaw signs an arbitrary payload with the same RSA scheme. The
// consent URL's seamlessSign is produced this way over the seamless JSON.
func (s *RSASigner) SignRaw(payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signature: sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Public returns the verifying counterpart of the signing key.
func (s *RSASigner) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

// RSAVerifier recomputes and checks signatures with the partner public key.
type RSAVerifier struct {
	Key *rsa.PublicKey
	// MaxSkew bounds how far the signed timestamp may drift from the
	// verifier's clock, in either direction. Zero disables the check.
	MaxSkew time.Duration
	// Now overrides the clock used for the skew check.
	Now func() time.Time
}

// Verify implements [Verifier].
func (v RSAVerifier) Verify(_ context.Context, material Material, signature string) error {
	if v.Key == nil {
		return errors.New("signature: RSAVerifier requires a public key")
	}
	if v.MaxSkew > 0 {
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		if AbsDuration(now().Sub(material.Timestamp)) > v.MaxSkew {
			return fmt.Errorf("signature: timestamp outside the allowed %s skew", v.MaxSkew)
		}
	}
	return v.VerifyRaw([]byte(StringToSign(material)), signature)
}

// VerifyRaw checks a signature over an arbitrary payload.
func (v RSAVerifier) VerifyRaw(payload []byte, signature string) error {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("signature: decode signature: %w", err)
	}
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(v.Key, crypto.SHA256, digest[:], decoded); err != nil {
		return errors.New("signature: invalid signature")
	}
	return nil
}

// ParsePrivateKey loads the partner signing key from PEM (PKCS#8 or
// PKCS#1) or from bare base64-encoded PKCS#8 DER, the form the sandbox
// hands out. A key that fails to parse is a fatal configuration error
// for the caller, never something to retry.
func ParsePrivateKey(material string) (*rsa.PrivateKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, errors.New("signature: empty private key material")
	}
	der := []byte(material)
	if block, _ := pem.Decode(der); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(material)
		if err != nil {
			return nil, fmt.Errorf("signature: private key is neither PEM nor base64 DER: %w", err)
		}
		der = decoded
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signature: unsupported private key type %T", key)
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("signature: parse private key: %w", err)
	}
	return key, nil
}

// ParsePublicKey loads an RSA public key from PEM or base64 PKIX DER.
func ParsePublicKey(material string) (*rsa.PublicKey, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, errors.New("signature: empty public key material")
	}
	der := []byte(material)
	if block, _ := pem.Decode(der); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(material)
		if err != nil {
			return nil, fmt.Errorf("signature: public key is neither PEM nor base64 DER: %w", err)
		}
		der = decoded
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("signature: parse public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signature: unsupported public key type %T", key)
	}
	return rsaKey, nil
}
