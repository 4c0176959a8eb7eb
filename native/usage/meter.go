package usage

import (
	"errors"
	"math"
)

var (
	ErrCapExceeded     = errors.New("usage meter: unit cap exceeded")
	ErrCounterOverflow = errors.New("usage meter: counter overflow")

	errNilState = errors.New("usage meter: state not configured")
)

type meterState interface {
	UsageGet(user [20]byte, contentID uint64) (uint64, error)
	UsagePut(user [20]byte, contentID uint64, total uint64) error
}

// Apply verifies that charging the additional units fits within the cap and
// returns the updated counter. A zero maxUnits means unlimited. Counters are
// monotonically non-decreasing; callers never subtract.
func Apply(consumed, units, maxUnits uint64) (uint64, error) {
	if units > math.MaxUint64-consumed {
		return consumed, ErrCounterOverflow
	}
	next := consumed + units
	if maxUnits != 0 && next > maxUnits {
		return consumed, ErrCapExceeded
	}
	return next, nil
}

// Meter tracks per-(user, content) consumption counters. It performs no
// monetary accounting; the access engine evaluates cap and payment together.
type Meter struct {
	state meterState
}

// NewMeter constructs a usage meter with no state attached.
func NewMeter() *Meter { return &Meter{} }

// SetState configures the state backend used by the meter.
func (m *Meter) SetState(state meterState) { m.state = state }

// Consumed returns the cumulative units the user has purchased for the
// content id.
func (m *Meter) Consumed(user [20]byte, contentID uint64) (uint64, error) {
	if m == nil || m.state == nil {
		return 0, errNilState
	}
	return m.state.UsageGet(user, contentID)
}

// Charge records the additional units after validating the cap and returns
// the new cumulative total.
func (m *Meter) Charge(user [20]byte, contentID uint64, units, maxUnits uint64) (uint64, error) {
	if m == nil || m.state == nil {
		return 0, errNilState
	}
	consumed, err := m.state.UsageGet(user, contentID)
	if err != nil {
		return 0, err
	}
	next, err := Apply(consumed, units, maxUnits)
	if err != nil {
		return consumed, err
	}
	if err := m.state.UsagePut(user, contentID, next); err != nil {
		return consumed, err
	}
	return next, nil
}
