package usage

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

type mockState struct {
	counters map[string]uint64
}

func newMockState() *mockState {
	return &mockState{counters: make(map[string]uint64)}
}

func counterKey(user [20]byte, contentID uint64) string {
	return fmt.Sprintf("%x/%d", user, contentID)
}

func (m *mockState) UsageGet(user [20]byte, contentID uint64) (uint64, error) {
	return m.counters[counterKey(user, contentID)], nil
}

func (m *mockState) UsagePut(user [20]byte, contentID uint64, total uint64) error {
	m.counters[counterKey(user, contentID)] = total
	return nil
}

func TestApply(t *testing.T) {
	cases := []struct {
		name     string
		consumed uint64
		units    uint64
		maxUnits uint64
		want     uint64
		wantErr  error
	}{
		{name: "unlimited", consumed: 100, units: 50, maxUnits: 0, want: 150},
		{name: "within cap", consumed: 2, units: 3, maxUnits: 5, want: 5},
		{name: "exceeds cap", consumed: 3, units: 3, maxUnits: 5, wantErr: ErrCapExceeded},
		{name: "counter overflow", consumed: math.MaxUint64 - 1, units: 2, maxUnits: 0, wantErr: ErrCounterOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.consumed, tc.units, tc.maxUnits)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if got != tc.consumed {
					t.Fatalf("failed apply changed the counter: %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected total: got %d want %d", got, tc.want)
			}
		})
	}
}

func TestChargePersistsTotals(t *testing.T) {
	var user [20]byte
	user[19] = 0x01

	meter := NewMeter()
	meter.SetState(newMockState())

	total, err := meter.Charge(user, 1, 3, 5)
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("unexpected total after first charge: %d", total)
	}
	if total, err = meter.Charge(user, 1, 2, 5); err != nil || total != 5 {
		t.Fatalf("second charge: total=%d err=%v", total, err)
	}
	if _, err := meter.Charge(user, 1, 1, 5); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected ErrCapExceeded, got %v", err)
	}
	consumed, err := meter.Consumed(user, 1)
	if err != nil {
		t.Fatalf("consumed failed: %v", err)
	}
	if consumed != 5 {
		t.Fatalf("failed charge mutated the counter: %d", consumed)
	}
}

func TestConsumedDefaultsToZero(t *testing.T) {
	var user [20]byte
	meter := NewMeter()
	meter.SetState(newMockState())

	consumed, err := meter.Consumed(user, 99)
	if err != nil {
		t.Fatalf("consumed failed: %v", err)
	}
	if consumed != 0 {
		t.Fatalf("expected zero counter, got %d", consumed)
	}
}
