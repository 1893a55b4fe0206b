package snap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ruangpay/snap/signature"
)

// Result is the durable outcome of one business operation, stored so
// duplicate submissions can be answered without re-executing.
type Result struct {
	ReferenceNo        string          `json:"referenceNo"`
	PartnerReferenceNo string          `json:"partnerReferenceNo"`
	ResponseCode       string          `json:"responseCode"`
	Body               json.RawMessage `json:"body,omitempty"`
}

// Fingerprint reduces a business payload to a stable digest. It runs
// through canonical JSON first, so key-order permutations of the same
// payload produce the same fingerprint.
func Fingerprint(payload any) (string, error) {
	canonical, err := signature.CanonicalizeValue(payload)
	if err != nil {
		return "", fmt.Errorf("snap: fingerprint payload: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// IdempotencyGuard enforces that a partner reference number maps to
// exactly one logical operation. The first caller for a key executes;
// concurrent followers with the same key and payload block until that
// execution finishes and then receive its result verbatim; a matching
// later resubmission is answered from the stored result without
// re-executing; a resubmission with a different payload fails with a
// conflict, never a silent success and never a bare not-found.
type IdempotencyGuard struct {
	mu      sync.Mutex
	entries map[string]*idemEntry
}

type idemEntry struct {
	fingerprint string
	done        chan struct{}
	result      *Result
	err         error
}

// NewIdempotencyGuard builds an empty in-memory guard.
func NewIdempotencyGuard() *IdempotencyGuard {
	return &IdempotencyGuard{entries: make(map[string]*idemEntry)}
}

// Do executes fn at most once per (key, payload fingerprint).
//
// Transient failures release the key so a later resubmission can retry
// the operation; successes and terminal failures stay recorded, mirroring
// the gateway answering duplicates with the original response code.
func (g *IdempotencyGuard) Do(ctx context.Context, key string, payload any, fn func(ctx context.Context) (*Result, error)) (*Result, error) {
	if key == "" {
		return nil, NewInvalidFormatError("idempotency key is required")
	}
	fingerprint, err := Fingerprint(payload)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	entry, ok := g.entries[key]
	if ok {
		if entry.fingerprint != fingerprint {
			g.mu.Unlock()
			return nil, NewConflictError("reference number reused with a different payload")
		}
		g.mu.Unlock()
		select {
		case <-entry.done:
			return entry.result, entry.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	entry = &idemEntry{fingerprint: fingerprint, done: make(chan struct{})}
	g.entries[key] = entry
	g.mu.Unlock()

	result, err := fn(ctx)
	entry.result = result
	entry.err = err
	close(entry.done)

	if err != nil && Retryable(err) {
		// The remote side may not have executed; free the key so a
		// resubmission can try again.
		g.mu.Lock()
		if g.entries[key] == entry {
			delete(g.entries, key)
		}
		g.mu.Unlock()
	}
	return result, err
}

// Recorded returns the stored result for key, if any.
func (g *IdempotencyGuard) Recorded(key string) (*Result, bool) {
	g.mu.Lock()
	entry, ok := g.entries[key]
	g.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-entry.done:
		return entry.result, entry.err == nil
	default:
		return nil, false
	}
}
