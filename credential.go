package snap

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruangpay/snap/signature"
)

// PartnerCredential holds the partner identity and signing key. It is
// immutable for the process lifetime: load it once at startup and pass
// it by reference into each component. Key material is opaque and never
// appears in logs or String output.
type PartnerCredential struct {
	partnerID string
	channelID string
	origin    string
	signer    *signature.RSASigner
}

// LoadPartnerCredential parses privateKey (PKCS#8 PEM or base64 DER) and
// builds the credential. A key that fails to parse is a fatal
// configuration error; callers must not retry it.
func LoadPartnerCredential(partnerID, channelID, origin, privateKey string) (*PartnerCredential, error) {
	key, err := signature.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("snap: load partner credential: %w", err)
	}
	return NewPartnerCredential(partnerID, channelID, origin, key)
}

// NewPartnerCredential wraps an already-parsed signing key.
func NewPartnerCredential(partnerID, channelID, origin string, key *rsa.PrivateKey) (*PartnerCredential, error) {
	if partnerID == "" {
		return nil, errors.New("snap: partner ID is required")
	}
	signer, err := signature.NewRSASigner(key)
	if err != nil {
		return nil, fmt.Errorf("snap: partner credential: %w", err)
	}
	return &PartnerCredential{
		partnerID: partnerID,
		channelID: channelID,
		origin:    origin,
		signer:    signer,
	}, nil
}

// PartnerID returns the X-PARTNER-ID value.
func (c *PartnerCredential) PartnerID() string { return c.partnerID }

// ChannelID returns the CHANNEL-ID value.
func (c *PartnerCredential) ChannelID() string { return c.channelID }

// Origin returns the ORIGIN header value.
func (c *PartnerCredential) Origin() string { return c.origin }

// Signer returns the request signer bound to this credential.
func (c *PartnerCredential) Signer() *signature.RSASigner { return c.signer }

// PublicKey returns the verifying counterpart the gateway is assumed to
// hold.
func (c *PartnerCredential) PublicKey() *rsa.PublicKey { return c.signer.Public() }

// String redacts the key material.
func (c *PartnerCredential) String() string {
	return fmt.Sprintf("PartnerCredential{partnerID: %s, channelID: %s, key: [redacted]}", c.partnerID, c.channelID)
}

// LogValue keeps slog output free of key material.
func (c *PartnerCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("partner_id", c.partnerID),
		slog.String("channel_id", c.channelID),
	)
}
