package snap

import (
	"net/url"
	"strings"
	"testing"

	"github.com/ruangpay/snap/signature"
)

func consentClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(testCredential(t), "https://api.gateway.example",
		WithClock(fixedClock()),
		WithConsentBaseURL("https://m.gateway.example"))
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}

func TestConsentURLParameters(t *testing.T) {
	t.Parallel()

	raw, err := consentClient(t).ConsentURL(ConsentURLData{
		Scopes:      []Scope{ScopeCashier, ScopeAgreementPay},
		RedirectURL: "https://partner.example/callback",
		ExternalID:  "ext-1",
		State:       "state-1",
	})
	if err != nil {
		t.Fatalf("consent url: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Host != "m.gateway.example" || parsed.Path != "/v1.0/get-auth-code" {
		t.Fatalf("endpoint = %s%s", parsed.Host, parsed.Path)
	}
	q := parsed.Query()
	want := map[string]string{
		"partnerId":   "PARTNER-001",
		"channelId":   "CH-95221",
		"externalId":  "ext-1",
		"state":       "state-1",
		"scopes":      "CASHIER,AGREEMENT_PAY",
		"redirectUrl": "https://partner.example/callback",
		"timestamp":   signature.FormatTimestamp(fixedTime()),
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Fatalf("%s = %q, want %q", key, got, value)
		}
	}
	if q.Has("seamlessData") || q.Has("seamlessSign") {
		t.Fatal("no seamless pair expected without seamless data")
	}
}

func TestConsentURLGeneratesIdentifiers(t *testing.T) {
	t.Parallel()

	client := consentClient(t)
	data := ConsentURLData{Scopes: []Scope{ScopeCashier}, RedirectURL: "https://partner.example/cb"}

	first, err := client.ConsentURL(data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.ConsentURL(data)
	if err != nil {
		t.Fatal(err)
	}
	firstQ, _ := url.Parse(first)
	secondQ, _ := url.Parse(second)
	if firstQ.Query().Get("externalId") == "" {
		t.Fatal("externalId not generated")
	}
	if firstQ.Query().Get("externalId") == secondQ.Query().Get("externalId") {
		t.Fatal("generated externalId must be unique per URL")
	}
	if firstQ.Query().Get("state") == secondQ.Query().Get("state") {
		t.Fatal("generated state must be unique per URL")
	}
}

func TestConsentURLSignsSeamlessData(t *testing.T) {
	t.Parallel()

	raw, err := consentClient(t).ConsentURL(ConsentURLData{
		Scopes:      []Scope{ScopeCashier},
		RedirectURL: "https://partner.example/cb",
		Seamless: &SeamlessData{
			MobileNumber: "0811742234",
			BizScenario:  "PAYMENT",
		},
	})
	if err != nil {
		t.Fatalf("consent url: %v", err)
	}

	parsed, _ := url.Parse(raw)
	seamlessData := parsed.Query().Get("seamlessData")
	seamlessSign := parsed.Query().Get("seamlessSign")
	if seamlessData == "" || seamlessSign == "" {
		t.Fatal("seamless pair missing")
	}
	if !strings.Contains(seamlessData, `"mobileNumber":"0811742234"`) {
		t.Fatalf("seamlessData = %s", seamlessData)
	}

	verifier := signature.RSAVerifier{Key: &testKey.PublicKey}
	if err := verifier.VerifyRaw([]byte(seamlessData), seamlessSign); err != nil {
		t.Fatalf("seamlessSign does not verify: %v", err)
	}
}

func TestConsentURLRequiredFields(t *testing.T) {
	t.Parallel()

	client := consentClient(t)
	_, err := client.ConsentURL(ConsentURLData{RedirectURL: "https://partner.example/cb"})
	gwErr := requireKind(t, err, KindInvalidFormat)
	if gwErr.Stage != StageConsent {
		t.Fatalf("stage = %s", gwErr.Stage)
	}
	_, err = client.ConsentURL(ConsentURLData{Scopes: []Scope{ScopeCashier}})
	requireKind(t, err, KindInvalidFormat)
}

func TestAuthCodeFromRedirect(t *testing.T) {
	t.Parallel()

	code, err := AuthCodeFromRedirect("https://partner.example/cb?authCode=abc123&state=s1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "abc123" {
		t.Fatalf("code = %q", code)
	}

	code, err = AuthCodeFromRedirect("https://partner.example/cb?auth_code=xyz789")
	if err != nil {
		t.Fatal(err)
	}
	if code != "xyz789" {
		t.Fatalf("code = %q", code)
	}

	_, err = AuthCodeFromRedirect("https://partner.example/cb?state=s1")
	gwErr := requireKind(t, err, KindNotFound)
	if gwErr.Stage != StageConsent {
		t.Fatalf("stage = %s", gwErr.Stage)
	}
}
