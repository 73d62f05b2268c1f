package backoff

import (
	"errors"
	"testing"
	"time"
)

func TestSequenceExhaustsAfterMaxAttempts(t *testing.T) {
	p := Policy{Base: time.Millisecond, JitterMax: 0, MaxAttempts: 3}
	seq := p.Start()

	for i := 0; i < 3; i++ {
		if _, err := seq.Next(); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}

	if _, err := seq.Next(); !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
}

func TestSequenceDoublesBaseDelay(t *testing.T) {
	p := Policy{Base: 10 * time.Millisecond, JitterMax: 0, MaxAttempts: 4}
	seq := p.Start()

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
	for i, w := range want {
		got, err := seq.Next()
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if got != w {
			t.Errorf("attempt %d: got %v want %v", i, got, w)
		}
	}
}

func TestSequenceAppliesJitterWithinBounds(t *testing.T) {
	p := Policy{Base: time.Millisecond, JitterMax: 5 * time.Millisecond, MaxAttempts: 1}
	seq := p.Start()

	got, err := seq.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got < time.Millisecond || got > 6*time.Millisecond {
		t.Errorf("delay %v outside expected [1ms, 6ms] range", got)
	}
}

func TestDefaultPolicyValues(t *testing.T) {
	d := Default()
	if d.Base != 100*time.Millisecond || d.JitterMax != 100*time.Millisecond || d.MaxAttempts != 3 {
		t.Errorf("unexpected default policy: %+v", d)
	}
}

func TestAttemptTracksIssuedDelays(t *testing.T) {
	seq := Default().Start()
	if seq.Attempt() != 0 {
		t.Fatalf("expected 0 attempts issued, got %d", seq.Attempt())
	}
	if _, err := seq.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if seq.Attempt() != 1 {
		t.Errorf("expected 1 attempt issued, got %d", seq.Attempt())
	}
}
