package snap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ruangpay/snap/signature"
)

const (
	defaultConsentBase = "https://m.sandbox.ruangpay.id"
	consentPath        = "/v1.0/get-auth-code"
)

// SeamlessData prefills the consent screen so the user only confirms
// with their PIN. It is signed with the partner key and carried as the
// seamlessData/seamlessSign query pair.
type SeamlessData struct {
	MobileNumber        string `json:"mobileNumber,omitempty"`
	BizScenario         string `json:"bizScenario,omitempty"`
	TimeVerified        string `json:"timeVerified,omitempty"`
	ExternalUID         string `json:"externalUid,omitempty"`
	DeviceID            string `json:"deviceId,omitempty"`
	SkipRegisterConsult bool   `json:"skipRegisterConsult,omitempty"`
}

// ConsentURLData parameterizes one consent redirect.
type ConsentURLData struct {
	Scopes      []Scope
	RedirectURL string
	// ExternalID and State are generated when empty.
	ExternalID string
	State      string
	Seamless   *SeamlessData
}

// ConsentURL builds the redirect that sends the user to the gateway's
// consent screen. The consent flow itself (phone number, PIN) is
// external; the redirect eventually returns an authCode query parameter
// to RedirectURL, extracted with [AuthCodeFromRedirect].
func (c *Client) ConsentURL(data ConsentURLData) (string, error) {
	if len(data.Scopes) == 0 {
		return "", NewInvalidFormatError("at least one scope is required", WithStage(StageConsent))
	}
	if data.RedirectURL == "" {
		return "", NewInvalidFormatError("redirect URL is required", WithStage(StageConsent))
	}
	externalID := data.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}
	state := data.State
	if state == "" {
		state = uuid.NewString()
	}
	scopes := make([]string, len(data.Scopes))
	for i, s := range data.Scopes {
		scopes[i] = string(s)
	}

	q := url.Values{}
	q.Set("partnerId", c.cred.PartnerID())
	q.Set("timestamp", signature.FormatTimestamp(c.cfg.clock()))
	q.Set("externalId", externalID)
	q.Set("channelId", c.cred.ChannelID())
	q.Set("scopes", strings.Join(scopes, ","))
	q.Set("redirectUrl", data.RedirectURL)
	q.Set("state", state)
	if data.Seamless != nil {
		seamlessJSON, err := signature.CanonicalizeValue(data.Seamless)
		if err != nil {
			return "", fmt.Errorf("snap: encode seamless data: %w", err)
		}
		seamlessSign, err := c.cred.Signer().SignRaw(seamlessJSON)
		if err != nil {
			return "", fmt.Errorf("snap: sign seamless data: %w", err)
		}
		q.Set("seamlessData", string(seamlessJSON))
		q.Set("seamlessSign", seamlessSign)
	}

	base := c.cfg.consentBase
	if base == "" {
		base = defaultConsentBase
	}
	return strings.TrimRight(base, "/") + consentPath + "?" + q.Encode(), nil
}

// AuthCodeFromRedirect extracts the authorization code the consent flow
// appended to the partner's redirect URL.
func AuthCodeFromRedirect(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", NewInvalidFormatError(fmt.Sprintf("redirect URL does not parse: %v", err), WithStage(StageConsent))
	}
	q := parsed.Query()
	code := q.Get("authCode")
	if code == "" {
		code = q.Get("auth_code")
	}
	if code == "" {
		return "", NewNotFoundError("redirect carries no authCode parameter", WithStage(StageConsent))
	}
	return code, nil
}
