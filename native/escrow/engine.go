package escrow

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"paywall/core/events"
	"paywall/native/common"
	"paywall/native/transfer"
)

var (
	ErrInvalidAmount       = errors.New("escrow engine: amount must be positive")
	ErrNoFunds             = errors.New("escrow engine: no funds to withdraw")
	ErrInsufficientBalance = errors.New("escrow engine: insufficient balance")

	errNilState   = errors.New("escrow engine: state not configured")
	errNilGateway = errors.New("escrow engine: transfer gateway not configured")
)

type engineState interface {
	EscrowBalanceGet(addr [20]byte) (*big.Int, error)
	EscrowBalancePut(addr [20]byte, amount *big.Int) error
	AdjustDeposited(delta *big.Int) (*big.Int, error)
	AdjustPaidOut(delta *big.Int) (*big.Int, error)
}

// Engine maintains per-user prepaid balances. Deposits record inbound value
// already taken into custody by the host; withdrawals hand value back out
// through the transfer gateway.
type Engine struct {
	state   engineState
	emitter events.Emitter
	gateway transfer.Gateway
	pauses  common.PauseView
}

// NewEngine constructs an escrow engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetGateway configures the outbound transfer gateway used by withdrawals.
func (e *Engine) SetGateway(gw transfer.Gateway) { e.gateway = gw }

// SetPauses configures the pause view consulted before state changes.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf returns the user's current prepaid balance.
func (e *Engine) BalanceOf(user [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.EscrowBalanceGet(user)
}

// Deposit credits the user's prepaid balance. The host has already moved the
// inbound value into custody; the engine only records it.
func (e *Engine) Deposit(user [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, "escrow"); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.EscrowBalanceGet(user)
	if err != nil {
		return err
	}
	prev := cloneBigInt(balance)
	next := new(big.Int).Add(prev, amount)
	if err := e.state.EscrowBalancePut(user, next); err != nil {
		return err
	}
	if _, err := e.state.AdjustDeposited(amount); err != nil {
		if restoreErr := e.state.EscrowBalancePut(user, prev); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("escrow engine: rollback balance: %w", restoreErr))
		}
		return err
	}
	e.emit(WrapEvent(DepositedEvent(hexAddr(user), amount.String(), next.String())))
	return nil
}

// Withdraw zeroes the user's balance and pays it out through the gateway.
// The balance is cleared before the gateway is invoked so a reentrant
// recipient observes nothing left to drain; a failed send rolls everything
// back.
func (e *Engine) Withdraw(user [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, "escrow"); err != nil {
		return nil, err
	}
	if e.gateway == nil {
		return nil, errNilGateway
	}
	balance, err := e.state.EscrowBalanceGet(user)
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(balance)
	if amount.Sign() == 0 {
		return nil, ErrNoFunds
	}
	if err := e.state.EscrowBalancePut(user, big.NewInt(0)); err != nil {
		return nil, err
	}
	if _, err := e.state.AdjustPaidOut(amount); err != nil {
		if restoreErr := e.state.EscrowBalancePut(user, amount); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("escrow engine: rollback balance: %w", restoreErr))
		}
		return nil, err
	}
	if err := e.gateway.Send(user, cloneBigInt(amount)); err != nil {
		if _, adjustErr := e.state.AdjustPaidOut(new(big.Int).Neg(amount)); adjustErr != nil {
			return nil, errors.Join(err, fmt.Errorf("escrow engine: rollback paid-out total: %w", adjustErr))
		}
		// The recipient may have deposited mid-send; restore by crediting
		// the current balance, never by overwriting it.
		if restoreErr := e.Credit(user, amount); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("escrow engine: rollback balance: %w", restoreErr))
		}
		return nil, fmt.Errorf("%w: %v", transfer.ErrTransferFailed, err)
	}
	e.emit(WrapEvent(WithdrawnEvent(hexAddr(user), amount.String())))
	return amount, nil
}

// Debit subtracts the amount from the user's balance. It is an internal
// transfer leg used by the access engine; value stays inside the system so
// no flow totals or events are recorded.
func (e *Engine) Debit(user [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.EscrowBalanceGet(user)
	if err != nil {
		return err
	}
	current := cloneBigInt(balance)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return e.state.EscrowBalancePut(user, new(big.Int).Sub(current, amount))
}

// Credit adds the amount back to the user's balance. Counterpart of Debit,
// used only to unwind a partially applied consume transition.
func (e *Engine) Credit(user [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.EscrowBalanceGet(user)
	if err != nil {
		return err
	}
	return e.state.EscrowBalancePut(user, new(big.Int).Add(cloneBigInt(balance), amount))
}
