package snap

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ruangpay/snap/signature"
)

// Header names the gateway expects on every signed call.
const (
	HeaderTimestamp     = "X-TIMESTAMP"
	HeaderSignature     = "X-SIGNATURE"
	HeaderPartnerID     = "X-PARTNER-ID"
	HeaderExternalID    = "X-EXTERNAL-ID"
	HeaderChannelID     = "CHANNEL-ID"
	HeaderOrigin        = "ORIGIN"
	HeaderDeviceID      = "X-DEVICE-ID"
	HeaderCustomerToken = "Authorization-Customer"
)

// corruptedSignature is the fixed invalid value injected by
// CorruptSignature. A recognizable constant keeps negative-path
// sandbox runs greppable.
const corruptedSignature = "invalid_signature_for_testing"

// HeaderFaults deliberately omits or corrupts individual headers for
// negative-path testing. The zero value is production behavior; faults
// must be opted into explicitly and never leak through silent defaults.
type HeaderFaults struct {
	OmitTimestamp    bool
	OmitSignature    bool
	OmitPartnerID    bool
	CorruptTimestamp bool
	CorruptSignature bool
}

func (f HeaderFaults) active() bool {
	return f.OmitTimestamp || f.OmitSignature || f.OmitPartnerID || f.CorruptTimestamp || f.CorruptSignature
}

// HeaderAssembler composes the outbound authentication header set from a
// signature, the partner identifiers, and a timestamp. All fault
// injection for the test matrix goes through Faults; nothing else
// mutates headers.
type HeaderAssembler struct {
	Credential *PartnerCredential
	Faults     HeaderFaults
}

// Assemble builds the header set for one signed call. externalID is
// generated when empty; deviceID and customerToken are attached only
// when present.
func (a HeaderAssembler) Assemble(sig string, ts time.Time, externalID, deviceID, customerToken string) http.Header {
	if externalID == "" {
		externalID = uuid.NewString()
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set(HeaderExternalID, externalID)
	if a.Credential != nil {
		if !a.Faults.OmitPartnerID {
			h.Set(HeaderPartnerID, a.Credential.PartnerID())
		}
		if a.Credential.ChannelID() != "" {
			h.Set(HeaderChannelID, a.Credential.ChannelID())
		}
		if a.Credential.Origin() != "" {
			h.Set(HeaderOrigin, a.Credential.Origin())
		}
	}
	switch {
	case a.Faults.OmitTimestamp:
	case a.Faults.CorruptTimestamp:
		// Wrong shape on purpose: space separator, no offset.
		h.Set(HeaderTimestamp, ts.Format("2006-01-02 15:04:05"))
	default:
		h.Set(HeaderTimestamp, signature.FormatTimestamp(ts))
	}
	switch {
	case a.Faults.OmitSignature:
	case a.Faults.CorruptSignature:
		h.Set(HeaderSignature, corruptedSignature)
	default:
		h.Set(HeaderSignature, sig)
	}
	if deviceID != "" {
		h.Set(HeaderDeviceID, deviceID)
	}
	if customerToken != "" {
		h.Set(HeaderCustomerToken, "Bearer "+customerToken)
	}
	return h
}
