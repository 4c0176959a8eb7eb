package state

import (
	"fmt"
	"math/big"
)

func (m *Manager) adjustFlowTotal(key []byte, name string, delta *big.Int) (*big.Int, error) {
	if m == nil {
		return nil, fmt.Errorf("state manager unavailable")
	}
	if delta == nil {
		delta = big.NewInt(0)
	}
	current, err := m.loadBigInt(key)
	if err != nil {
		return nil, err
	}
	updated := new(big.Int).Add(current, delta)
	if updated.Sign() < 0 {
		return nil, fmt.Errorf("state: %s total underflow", name)
	}
	if err := m.writeBigInt(key, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// AdjustDeposited moves the all-time deposited total by delta and returns
// the updated total. Negative deltas unwind a failed deposit.
func (m *Manager) AdjustDeposited(delta *big.Int) (*big.Int, error) {
	return m.adjustFlowTotal(depositedTotalKey, "deposited", delta)
}

// AdjustPaidOut moves the all-time paid-out total by delta and returns the
// updated total. Negative deltas unwind a failed payout.
func (m *Manager) AdjustPaidOut(delta *big.Int) (*big.Int, error) {
	return m.adjustFlowTotal(paidOutTotalKey, "paid-out", delta)
}

// ValueDeposited returns the all-time total of inbound deposits.
func (m *Manager) ValueDeposited() (*big.Int, error) {
	return m.loadBigInt(depositedTotalKey)
}

// ValuePaidOut returns the all-time total of settled outbound withdrawals.
func (m *Manager) ValuePaidOut() (*big.Int, error) {
	return m.loadBigInt(paidOutTotalKey)
}

// ValueHeld returns the value currently in custody: everything ever
// deposited minus everything ever paid out. At any quiescent point it
// equals the sum of all escrow and earnings balances.
func (m *Manager) ValueHeld() (*big.Int, error) {
	deposited, err := m.ValueDeposited()
	if err != nil {
		return nil, err
	}
	paidOut, err := m.ValuePaidOut()
	if err != nil {
		return nil, err
	}
	held := new(big.Int).Sub(deposited, paidOut)
	if held.Sign() < 0 {
		return nil, fmt.Errorf("state: held value underflow")
	}
	return held, nil
}
