package snap

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	t.Parallel()

	a, err := Fingerprint(map[string]any{"amount": "10.00", "currency": "IDR"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(map[string]any{"currency": "IDR", "amount": "10.00"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("fingerprints differ: %s vs %s", a, b)
	}

	c, err := Fingerprint(map[string]any{"amount": "20.00", "currency": "IDR"})
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatal("different payloads must not collide")
	}
}

func TestGuardReplaysRecordedResult(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	payload := CreateOrderRequest{
		PartnerReferenceNo: "ORDER-001",
		Amount:             Amount{Value: "10.00", Currency: "IDR"},
	}
	calls := 0
	fn := func(context.Context) (*Result, error) {
		calls++
		return &Result{
			ReferenceNo:        "GW-REF-1",
			PartnerReferenceNo: payload.PartnerReferenceNo,
			ResponseCode:       "2005400",
			Body:               json.RawMessage(`{"webRedirectUrl":"https://pay.example/1"}`),
		}, nil
	}

	first, err := guard.Do(context.Background(), "order:ORDER-001", payload, fn)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := guard.Do(context.Background(), "order:ORDER-001", payload, fn)
	if err != nil {
		t.Fatalf("resubmission: %v", err)
	}
	if calls != 1 {
		t.Fatalf("operation executed %d times, want 1", calls)
	}
	if first != second {
		t.Fatal("resubmission must receive the stored result verbatim")
	}

	recorded, ok := guard.Recorded("order:ORDER-001")
	if !ok || recorded.ReferenceNo != "GW-REF-1" {
		t.Fatalf("Recorded = %+v, %v", recorded, ok)
	}
}

func TestGuardConflictOnDifferentPayload(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	order := func(amount string) CreateOrderRequest {
		return CreateOrderRequest{
			PartnerReferenceNo: "ORDER-002",
			Amount:             Amount{Value: amount, Currency: "IDR"},
		}
	}
	if _, err := guard.Do(context.Background(), "order:ORDER-002", order("10.00"), func(context.Context) (*Result, error) {
		return &Result{ReferenceNo: "GW-REF-2", ResponseCode: "2005400"}, nil
	}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	_, err := guard.Do(context.Background(), "order:ORDER-002", order("20.00"), func(context.Context) (*Result, error) {
		t.Fatal("conflicting payload must not execute")
		return nil, nil
	})
	requireKind(t, err, KindConflict)
}

func TestGuardTerminalFailureStaysRecorded(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	calls := 0
	fn := func(context.Context) (*Result, error) {
		calls++
		return nil, NewBusinessRuleError("exceeds transaction limit")
	}

	_, err := guard.Do(context.Background(), "order:ORDER-003", "p", fn)
	requireKind(t, err, KindBusinessRule)
	_, err = guard.Do(context.Background(), "order:ORDER-003", "p", fn)
	requireKind(t, err, KindBusinessRule)
	if calls != 1 {
		t.Fatalf("terminal failure re-executed: %d calls", calls)
	}
}

func TestGuardTransientFailureFreesKey(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	calls := 0
	fn := func(context.Context) (*Result, error) {
		calls++
		if calls == 1 {
			return nil, NewTransientError("gateway unavailable")
		}
		return &Result{ReferenceNo: "GW-REF-4", ResponseCode: "2005400"}, nil
	}

	_, err := guard.Do(context.Background(), "order:ORDER-004", "p", fn)
	requireKind(t, err, KindTransient)
	if _, ok := guard.Recorded("order:ORDER-004"); ok {
		t.Fatal("transient failure must not stay recorded")
	}

	result, err := guard.Do(context.Background(), "order:ORDER-004", "p", fn)
	if err != nil {
		t.Fatalf("retry after transient failure: %v", err)
	}
	if result.ReferenceNo != "GW-REF-4" || calls != 2 {
		t.Fatalf("result = %+v, calls = %d", result, calls)
	}
}

func TestGuardConcurrentCallersExecuteOnce(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	var executions int32
	release := make(chan struct{})
	fn := func(context.Context) (*Result, error) {
		atomic.AddInt32(&executions, 1)
		<-release
		return &Result{ReferenceNo: "GW-REF-5", ResponseCode: "2005400"}, nil
	}

	const callers = 16
	results := make([]*Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = guard.Do(context.Background(), "order:ORDER-005", "p", fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&executions); got != 1 {
		t.Fatalf("operation executed %d times, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].ReferenceNo != "GW-REF-5" {
			t.Fatalf("caller %d result = %+v", i, results[i])
		}
	}
}

func TestGuardFollowerHonorsContext(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = guard.Do(context.Background(), "order:ORDER-006", "p", func(context.Context) (*Result, error) {
			close(started)
			<-release
			return &Result{ResponseCode: "2005400"}, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := guard.Do(ctx, "order:ORDER-006", "p", func(context.Context) (*Result, error) {
		t.Fatal("follower must not execute")
		return nil, nil
	})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	close(release)
}

func TestGuardRequiresKey(t *testing.T) {
	t.Parallel()

	guard := NewIdempotencyGuard()
	_, err := guard.Do(context.Background(), "", "p", func(context.Context) (*Result, error) {
		return nil, nil
	})
	requireKind(t, err, KindInvalidFormat)
}
