package snap

import (
	"testing"
)

func TestAssembleProductionHeaders(t *testing.T) {
	t.Parallel()

	assembler := HeaderAssembler{Credential: testCredential(t)}
	h := assembler.Assemble("sig-value", fixedTime(), "ext-1", "device-42", "tok_abc")

	if got := h.Get(HeaderTimestamp); got != "2025-09-10T14:30:15+07:00" {
		t.Fatalf("timestamp header = %q", got)
	}
	if got := h.Get(HeaderSignature); got != "sig-value" {
		t.Fatalf("signature header = %q", got)
	}
	if got := h.Get(HeaderPartnerID); got != "PARTNER-001" {
		t.Fatalf("partner header = %q", got)
	}
	if got := h.Get(HeaderChannelID); got != "CH-95221" {
		t.Fatalf("channel header = %q", got)
	}
	if got := h.Get(HeaderExternalID); got != "ext-1" {
		t.Fatalf("external ID header = %q", got)
	}
	if got := h.Get(HeaderDeviceID); got != "device-42" {
		t.Fatalf("device header = %q", got)
	}
	if got := h.Get(HeaderCustomerToken); got != "Bearer tok_abc" {
		t.Fatalf("customer token header = %q", got)
	}
}

func TestAssembleGeneratesExternalID(t *testing.T) {
	t.Parallel()

	assembler := HeaderAssembler{Credential: testCredential(t)}
	first := assembler.Assemble("sig", fixedTime(), "", "", "")
	second := assembler.Assemble("sig", fixedTime(), "", "", "")
	if first.Get(HeaderExternalID) == "" {
		t.Fatal("external ID must be generated when empty")
	}
	if first.Get(HeaderExternalID) == second.Get(HeaderExternalID) {
		t.Fatal("generated external IDs must be unique per call")
	}
}

func TestAssembleOmitsOptionalHeaders(t *testing.T) {
	t.Parallel()

	assembler := HeaderAssembler{Credential: testCredential(t)}
	h := assembler.Assemble("sig", fixedTime(), "ext", "", "")
	if _, ok := h[HeaderDeviceID]; ok {
		t.Fatal("device header must be absent without a device ID")
	}
	if _, ok := h[HeaderCustomerToken]; ok {
		t.Fatal("customer token header must be absent without a token")
	}
}

func TestHeaderFaultMatrix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		faults HeaderFaults
		check  func(t *testing.T, a HeaderAssembler)
	}{
		{
			name:   "omit timestamp",
			faults: HeaderFaults{OmitTimestamp: true},
			check: func(t *testing.T, a HeaderAssembler) {
				h := a.Assemble("sig", fixedTime(), "ext", "", "")
				if got := h.Get(HeaderTimestamp); got != "" {
					t.Fatalf("timestamp should be omitted, got %q", got)
				}
				if h.Get(HeaderSignature) == "" {
					t.Fatal("only the timestamp should be affected")
				}
			},
		},
		{
			name:   "omit signature",
			faults: HeaderFaults{OmitSignature: true},
			check: func(t *testing.T, a HeaderAssembler) {
				h := a.Assemble("sig", fixedTime(), "ext", "", "")
				if got := h.Get(HeaderSignature); got != "" {
					t.Fatalf("signature should be omitted, got %q", got)
				}
				if h.Get(HeaderTimestamp) == "" {
					t.Fatal("only the signature should be affected")
				}
			},
		},
		{
			name:   "omit partner ID",
			faults: HeaderFaults{OmitPartnerID: true},
			check: func(t *testing.T, a HeaderAssembler) {
				h := a.Assemble("sig", fixedTime(), "ext", "", "")
				if got := h.Get(HeaderPartnerID); got != "" {
					t.Fatalf("partner ID should be omitted, got %q", got)
				}
			},
		},
		{
			name:   "corrupt signature",
			faults: HeaderFaults{CorruptSignature: true},
			check: func(t *testing.T, a HeaderAssembler) {
				h := a.Assemble("good-signature", fixedTime(), "ext", "", "")
				if got := h.Get(HeaderSignature); got == "good-signature" || got == "" {
					t.Fatalf("signature should be replaced with an invalid value, got %q", got)
				}
			},
		},
		{
			name:   "corrupt timestamp",
			faults: HeaderFaults{CorruptTimestamp: true},
			check: func(t *testing.T, a HeaderAssembler) {
				h := a.Assemble("sig", fixedTime(), "ext", "", "")
				got := h.Get(HeaderTimestamp)
				if got == "" || got == "2025-09-10T14:30:15+07:00" {
					t.Fatalf("timestamp should be malformed, got %q", got)
				}
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.check(t, HeaderAssembler{Credential: testCredential(t), Faults: tc.faults})
		})
	}
}

func TestHeaderFaultsZeroValueIsInactive(t *testing.T) {
	t.Parallel()

	if (HeaderFaults{}).active() {
		t.Fatal("zero-value faults must be production behavior")
	}
	if !(HeaderFaults{OmitSignature: true}).active() {
		t.Fatal("any set fault must report active")
	}
}
