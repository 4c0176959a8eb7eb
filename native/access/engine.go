package access

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"

	"paywall/core/events"
	"paywall/native/catalog"
	"paywall/native/common"
	"paywall/native/escrow"
	"paywall/native/usage"
)

var (
	ErrInvalidUnits       = errors.New("access engine: units must be positive")
	ErrArithmeticOverflow = errors.New("access engine: cost exceeds numeric domain")
	ErrNotCreator         = errors.New("access engine: caller is not the content creator")

	errNotConfigured = errors.New("access engine: dependencies not configured")
)

// Catalog resolves content records for validation and authorization.
type Catalog interface {
	Get(id uint64) (*catalog.Content, error)
}

// Escrow exposes the prepaid-balance legs of the consume transition.
type Escrow interface {
	BalanceOf(user [20]byte) (*big.Int, error)
	Debit(user [20]byte, amount *big.Int) error
	Credit(user [20]byte, amount *big.Int) error
}

// Earnings exposes the creator-side legs of the consume transition and the
// authorized withdrawal path.
type Earnings interface {
	Credit(creator [20]byte, amount *big.Int) error
	Debit(creator [20]byte, amount *big.Int) error
	Withdraw(creator [20]byte) (*big.Int, error)
}

// Usage exposes the consumption counters consulted and charged per consume.
type Usage interface {
	Consumed(user [20]byte, contentID uint64) (uint64, error)
	Charge(user [20]byte, contentID uint64, units, maxUnits uint64) (uint64, error)
}

// Engine orchestrates the consume transition across the catalog, escrow,
// usage and earnings components. It is the only component that mutates more
// than one sub-ledger per call, so every failure path unwinds the writes it
// already applied.
type Engine struct {
	catalog  Catalog
	escrow   Escrow
	earnings Earnings
	meter    Usage
	emitter  events.Emitter
	pauses   common.PauseView
}

// NewEngine constructs an access engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetCatalog configures the content catalog consulted per transition.
func (e *Engine) SetCatalog(c Catalog) { e.catalog = c }

// SetEscrow configures the escrow component debited by consume.
func (e *Engine) SetEscrow(es Escrow) { e.escrow = es }

// SetEarnings configures the earnings component credited by consume.
func (e *Engine) SetEarnings(ea Earnings) { e.earnings = ea }

// SetMeter configures the usage meter charged by consume.
func (e *Engine) SetMeter(m Usage) { e.meter = m }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause view consulted before state changes.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

func (e *Engine) configured() error {
	if e == nil || e.catalog == nil || e.escrow == nil || e.earnings == nil || e.meter == nil {
		return errNotConfigured
	}
	return nil
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Cost multiplies the per-unit rate by the purchased units and rejects
// results wider than 256 bits rather than letting them wrap into a
// cost-of-zero purchase.
func Cost(ratePerUnit *big.Int, units uint64) (*big.Int, error) {
	if ratePerUnit == nil || ratePerUnit.Sign() <= 0 {
		return nil, catalog.ErrInvalidRate
	}
	cost := new(big.Int).Mul(ratePerUnit, new(big.Int).SetUint64(units))
	if _, overflow := uint256.FromBig(cost); overflow {
		return nil, ErrArithmeticOverflow
	}
	return cost, nil
}

// Consume validates and settles a purchase of content units: it debits the
// user's escrow, charges the usage counter and credits the creator's
// earnings, returning the total cost and the new usage total. Either all
// three effects land or none do.
func (e *Engine) Consume(user [20]byte, contentID uint64, units uint64) (*big.Int, uint64, error) {
	if err := e.configured(); err != nil {
		return nil, 0, err
	}
	if err := common.Guard(e.pauses, "access"); err != nil {
		return nil, 0, err
	}
	content, err := e.catalog.Get(contentID)
	if err != nil {
		return nil, 0, err
	}
	if units == 0 {
		return nil, 0, ErrInvalidUnits
	}
	cost, err := Cost(content.RatePerUnit, units)
	if err != nil {
		return nil, 0, err
	}
	consumed, err := e.meter.Consumed(user, contentID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := usage.Apply(consumed, units, content.MaxUnits); err != nil {
		return nil, 0, err
	}
	balance, err := e.escrow.BalanceOf(user)
	if err != nil {
		return nil, 0, err
	}
	if balance == nil || balance.Cmp(cost) < 0 {
		return nil, 0, escrow.ErrInsufficientBalance
	}

	// All validations passed; apply the three effects with compensation so
	// a state write failure leaves no partial transition behind.
	if err := e.escrow.Debit(user, cost); err != nil {
		return nil, 0, err
	}
	if err := e.earnings.Credit(content.Creator, cost); err != nil {
		if refundErr := e.escrow.Credit(user, cost); refundErr != nil {
			return nil, 0, errors.Join(err, fmt.Errorf("access engine: rollback escrow: %w", refundErr))
		}
		return nil, 0, err
	}
	newTotal, err := e.meter.Charge(user, contentID, units, content.MaxUnits)
	if err != nil {
		if debitErr := e.earnings.Debit(content.Creator, cost); debitErr != nil {
			return nil, 0, errors.Join(err, fmt.Errorf("access engine: rollback earnings: %w", debitErr))
		}
		if refundErr := e.escrow.Credit(user, cost); refundErr != nil {
			return nil, 0, errors.Join(err, fmt.Errorf("access engine: rollback escrow: %w", refundErr))
		}
		return nil, 0, err
	}

	e.emitter.Emit(WrapEvent(ContentAccessedEvent(
		strconv.FormatUint(contentID, 10),
		hexAddr(user),
		strconv.FormatUint(units, 10),
		cost.String(),
		strconv.FormatUint(newTotal, 10),
	)))
	return cost, newTotal, nil
}

// WithdrawEarnings pays out the caller's aggregate earnings after verifying
// they created the supplied content. The creator is re-derived from the
// catalog on every call, never cached. A creator with several content items
// can drain their full aggregated balance through any one of their own ids;
// that aggregate-via-any-id behavior is deliberate.
func (e *Engine) WithdrawEarnings(caller [20]byte, contentID uint64) (*big.Int, error) {
	if err := e.configured(); err != nil {
		return nil, err
	}
	if err := common.Guard(e.pauses, "earnings"); err != nil {
		return nil, err
	}
	content, err := e.catalog.Get(contentID)
	if err != nil {
		return nil, err
	}
	if content.Creator != caller {
		return nil, ErrNotCreator
	}
	return e.earnings.Withdraw(caller)
}
