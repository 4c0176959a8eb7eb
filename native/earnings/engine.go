package earnings

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"paywall/core/events"
	"paywall/native/transfer"
)

var (
	ErrInvalidAmount       = errors.New("earnings engine: amount must be positive")
	ErrNoEarnings          = errors.New("earnings engine: no earnings to withdraw")
	ErrInsufficientBalance = errors.New("earnings engine: insufficient balance")

	errNilState   = errors.New("earnings engine: state not configured")
	errNilGateway = errors.New("earnings engine: transfer gateway not configured")
)

type engineState interface {
	EarningsBalanceGet(addr [20]byte) (*big.Int, error)
	EarningsBalancePut(addr [20]byte, amount *big.Int) error
	AdjustPaidOut(delta *big.Int) (*big.Int, error)
}

// Engine maintains per-creator accrued earnings. Earnings are aggregated
// across all of a creator's content; withdrawal authorization lives in the
// access engine, which re-derives the creator from the catalog per call.
type Engine struct {
	state   engineState
	emitter events.Emitter
	gateway transfer.Gateway
}

// NewEngine constructs an earnings engine with a no-op emitter.
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

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// BalanceOf returns the creator's accrued, withdrawable earnings.
func (e *Engine) BalanceOf(creator [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.EarningsBalanceGet(creator)
}

// Credit accrues consume proceeds to the creator. Value moves from escrow,
// never into or out of the system, so flow totals are untouched.
func (e *Engine) Credit(creator [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.EarningsBalanceGet(creator)
	if err != nil {
		return err
	}
	return e.state.EarningsBalancePut(creator, new(big.Int).Add(cloneBigInt(balance), amount))
}

// Debit removes previously credited earnings. Used only to unwind a
// partially applied consume transition.
func (e *Engine) Debit(creator [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := e.state.EarningsBalanceGet(creator)
	if err != nil {
		return err
	}
	current := cloneBigInt(balance)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return e.state.EarningsBalancePut(creator, new(big.Int).Sub(current, amount))
}

// Withdraw zeroes the creator's earnings and pays them out through the
// gateway. The balance is cleared before the gateway is invoked so a
// reentrant recipient observes nothing left to drain; a failed send rolls
// everything back.
func (e *Engine) Withdraw(creator [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.gateway == nil {
		return nil, errNilGateway
	}
	balance, err := e.state.EarningsBalanceGet(creator)
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(balance)
	if amount.Sign() == 0 {
		return nil, ErrNoEarnings
	}
	if err := e.state.EarningsBalancePut(creator, big.NewInt(0)); err != nil {
		return nil, err
	}
	if _, err := e.state.AdjustPaidOut(amount); err != nil {
		if restoreErr := e.state.EarningsBalancePut(creator, amount); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("earnings engine: rollback balance: %w", restoreErr))
		}
		return nil, err
	}
	if err := e.gateway.Send(creator, cloneBigInt(amount)); err != nil {
		if _, adjustErr := e.state.AdjustPaidOut(new(big.Int).Neg(amount)); adjustErr != nil {
			return nil, errors.Join(err, fmt.Errorf("earnings engine: rollback paid-out total: %w", adjustErr))
		}
		// The recipient may have accrued new earnings mid-send; restore by
		// crediting the current balance, never by overwriting it.
		if restoreErr := e.Credit(creator, amount); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("earnings engine: rollback balance: %w", restoreErr))
		}
		return nil, fmt.Errorf("%w: %v", transfer.ErrTransferFailed, err)
	}
	e.emitter.Emit(WrapEvent(WithdrawnEvent(hexAddr(creator), amount.String())))
	return amount, nil
}
