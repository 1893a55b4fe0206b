package snap

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

var testKey = mustGenerateKey()

func mustGenerateKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}

func testCredential(t *testing.T) *PartnerCredential {
	t.Helper()
	cred, err := NewPartnerCredential("PARTNER-001", "CH-95221", "https://partner.example", testKey)
	if err != nil {
		t.Fatalf("build credential: %v", err)
	}
	return cred
}

func fixedTime() time.Time {
	return time.Date(2025, 9, 10, 14, 30, 15, 0, time.FixedZone("WIB", 7*3600))
}

func fixedClock() func() time.Time {
	return fixedTime
}
