package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

func checkBalance(amount *big.Int) error {
	if amount == nil {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance")
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return fmt.Errorf("state: balance overflow")
	}
	return nil
}

// EscrowBalanceGet returns the user's prepaid balance. Missing entries
// default to zero.
func (m *Manager) EscrowBalanceGet(addr [20]byte) (*big.Int, error) {
	return m.loadBigInt(escrowBalanceKey(addr))
}

// EscrowBalancePut persists the user's prepaid balance.
func (m *Manager) EscrowBalancePut(addr [20]byte, amount *big.Int) error {
	if err := checkBalance(amount); err != nil {
		return err
	}
	return m.writeBigInt(escrowBalanceKey(addr), amount)
}

// EarningsBalanceGet returns the creator's accrued earnings. Missing entries
// default to zero.
func (m *Manager) EarningsBalanceGet(addr [20]byte) (*big.Int, error) {
	return m.loadBigInt(earningsBalanceKey(addr))
}

// EarningsBalancePut persists the creator's accrued earnings.
func (m *Manager) EarningsBalancePut(addr [20]byte, amount *big.Int) error {
	if err := checkBalance(amount); err != nil {
		return err
	}
	return m.writeBigInt(earningsBalanceKey(addr), amount)
}

// UsageGet returns the cumulative units the user has purchased for the
// content id. Missing entries default to zero.
func (m *Manager) UsageGet(user [20]byte, contentID uint64) (uint64, error) {
	return m.loadUint64(usageCounterKey(user, contentID))
}

// UsagePut persists the cumulative usage counter.
func (m *Manager) UsagePut(user [20]byte, contentID uint64, total uint64) error {
	return m.writeUint64(usageCounterKey(user, contentID), total)
}
