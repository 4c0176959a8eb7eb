package earnings

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"paywall/core/events"
	"paywall/native/transfer"
)

type mockState struct {
	balances map[[20]byte]*big.Int
	paidOut  *big.Int
}

func newMockState() *mockState {
	return &mockState{
		balances: make(map[[20]byte]*big.Int),
		paidOut:  big.NewInt(0),
	}
}

func (m *mockState) EarningsBalanceGet(addr [20]byte) (*big.Int, error) {
	if balance, ok := m.balances[addr]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) EarningsBalancePut(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bad balance")
	}
	m.balances[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) AdjustPaidOut(delta *big.Int) (*big.Int, error) {
	updated := new(big.Int).Add(m.paidOut, delta)
	if updated.Sign() < 0 {
		return nil, fmt.Errorf("paid-out underflow")
	}
	m.paidOut = updated
	return new(big.Int).Set(updated), nil
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestCreditAccruesAcrossContent(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())

	creator := addr(0x02)
	if err := engine.Credit(creator, big.NewInt(30)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := engine.Credit(creator, big.NewInt(12)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	balance, err := engine.BalanceOf(creator)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected balance: %s", balance)
	}
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())

	if err := engine.Credit(addr(0x02), big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := engine.Debit(addr(0x02), nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDebitRequiresBalance(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())

	creator := addr(0x02)
	if err := engine.Credit(creator, big.NewInt(10)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := engine.Debit(creator, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestWithdrawRequiresEarnings(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())
	engine.SetGateway(transfer.Func(func([20]byte, *big.Int) error { return nil }))

	if _, err := engine.Withdraw(addr(0x02)); !errors.Is(err, ErrNoEarnings) {
		t.Fatalf("expected ErrNoEarnings, got %v", err)
	}
}

func TestWithdrawDrainsAggregateBalance(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	recorder := &events.Recorder{}
	engine.SetEmitter(recorder)

	sent := big.NewInt(0)
	engine.SetGateway(transfer.Func(func(_ [20]byte, amount *big.Int) error {
		sent = new(big.Int).Set(amount)
		return nil
	}))

	creator := addr(0x02)
	if err := engine.Credit(creator, big.NewInt(30)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	paid, err := engine.Withdraw(creator)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if paid.Cmp(big.NewInt(30)) != 0 || sent.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected payout: paid=%s sent=%s", paid, sent)
	}
	balance, _ := engine.BalanceOf(creator)
	if balance.Sign() != 0 {
		t.Fatalf("earnings not cleared: %s", balance)
	}
	if state.paidOut.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("paid-out total not recorded: %s", state.paidOut)
	}
	emitted := recorder.Events()
	if len(emitted) != 1 || emitted[0].EventType() != EventTypeWithdrawn {
		t.Fatalf("unexpected events: %v", emitted)
	}
}

func TestWithdrawRollsBackOnTransferFailure(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetGateway(transfer.Func(func([20]byte, *big.Int) error {
		return fmt.Errorf("recipient rejected")
	}))

	creator := addr(0x02)
	if err := engine.Credit(creator, big.NewInt(55)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := engine.Withdraw(creator); !errors.Is(err, transfer.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	balance, _ := engine.BalanceOf(creator)
	if balance.Cmp(big.NewInt(55)) != 0 {
		t.Fatalf("earnings not restored: %s", balance)
	}
	if state.paidOut.Sign() != 0 {
		t.Fatalf("paid-out total not rolled back: %s", state.paidOut)
	}
}

func TestWithdrawFailedSendKeepsReentrantCredit(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)

	creator := addr(0x02)
	engine.SetGateway(transfer.Func(func([20]byte, *big.Int) error {
		// New proceeds accrue mid-transfer, then the transfer fails. The
		// rollback must keep the fresh credit.
		if err := engine.Credit(creator, big.NewInt(5)); err != nil {
			t.Fatalf("reentrant credit failed: %v", err)
		}
		return fmt.Errorf("recipient rejected")
	}))

	if err := engine.Credit(creator, big.NewInt(55)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := engine.Withdraw(creator); !errors.Is(err, transfer.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	balance, _ := engine.BalanceOf(creator)
	if balance.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("rollback destroyed the reentrant credit: %s", balance)
	}
	if state.paidOut.Sign() != 0 {
		t.Fatalf("paid-out total not rolled back: %s", state.paidOut)
	}
}

func TestWithdrawReentrantRecipientCannotDrain(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())

	creator := addr(0x02)
	received := big.NewInt(0)
	var reentrantErr error
	engine.SetGateway(transfer.Func(func(_ [20]byte, amount *big.Int) error {
		received = new(big.Int).Add(received, amount)
		if reentrantErr == nil {
			_, reentrantErr = engine.Withdraw(creator)
		}
		return nil
	}))

	if err := engine.Credit(creator, big.NewInt(70)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	paid, err := engine.Withdraw(creator)
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !errors.Is(reentrantErr, ErrNoEarnings) {
		t.Fatalf("reentrant withdraw should find no earnings, got %v", reentrantErr)
	}
	if paid.Cmp(big.NewInt(70)) != 0 || received.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("reentrant recipient extracted more than the balance: paid=%s received=%s", paid, received)
	}
}
