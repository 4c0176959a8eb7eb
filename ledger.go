// Package paywall implements a pay-per-use content access ledger: creators
// register content with a per-unit price and optional usage cap, consumers
// pre-fund an escrow balance and spend from it to unlock units, and the
// spent value accrues into withdrawable per-creator earnings.
//
// The package wires the native engines (catalog, escrow, usage, earnings,
// access) over one shared state manager and exposes the public operation
// surface the execution host invokes. The host is responsible for
// serializing operations and supplying an unforgeable caller identity per
// call; the ledger is responsible for keeping every balance transition
// invariant-preserving.
package paywall

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"

	"paywall/config"
	"paywall/core/events"
	"paywall/core/state"
	"paywall/native/access"
	"paywall/native/catalog"
	"paywall/native/earnings"
	"paywall/native/escrow"
	"paywall/native/transfer"
	"paywall/native/usage"
	"paywall/observability/logging"
	"paywall/storage"
)

// Ledger is the assembled accounting engine. All mutating operations take
// the caller identity as their first argument; the identity is supplied by
// the execution context and never derived inside the ledger.
type Ledger struct {
	cfg      *config.Config
	db       storage.Database
	state    *state.Manager
	catalog  *catalog.Engine
	escrow   *escrow.Engine
	meter    *usage.Meter
	earnings *earnings.Engine
	access   *access.Engine
	log      *slog.Logger
}

// Open builds a ledger from the supplied configuration. A nil configuration
// opens an in-memory ledger with defaults.
func Open(cfg *config.Config) (*Ledger, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db storage.Database
	if cfg.InMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
		if err != nil {
			return nil, fmt.Errorf("open ledger store: %w", err)
		}
		db = ldb
	}

	manager := state.NewManager(db)
	pauses := cfg.Pauses()

	catalogEngine := catalog.NewEngine()
	catalogEngine.SetState(manager)
	catalogEngine.SetPauses(pauses)

	escrowEngine := escrow.NewEngine()
	escrowEngine.SetState(manager)
	escrowEngine.SetPauses(pauses)

	meter := usage.NewMeter()
	meter.SetState(manager)

	earningsEngine := earnings.NewEngine()
	earningsEngine.SetState(manager)

	accessEngine := access.NewEngine()
	accessEngine.SetCatalog(catalogEngine)
	accessEngine.SetEscrow(escrowEngine)
	accessEngine.SetEarnings(earningsEngine)
	accessEngine.SetMeter(meter)
	accessEngine.SetPauses(pauses)

	return &Ledger{
		cfg:      cfg,
		db:       db,
		state:    manager,
		catalog:  catalogEngine,
		escrow:   escrowEngine,
		meter:    meter,
		earnings: earningsEngine,
		access:   accessEngine,
		log:      logging.Setup(cfg.Service, cfg.Env),
	}, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() {
	if l == nil || l.db == nil {
		return
	}
	l.db.Close()
}

// SetGateway configures the outbound transfer gateway used by both
// withdrawal paths.
func (l *Ledger) SetGateway(gw transfer.Gateway) {
	l.escrow.SetGateway(gw)
	l.earnings.SetGateway(gw)
}

// SetEmitter configures the event emitter shared by every engine.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.catalog.SetEmitter(emitter)
	l.escrow.SetEmitter(emitter)
	l.earnings.SetEmitter(emitter)
	l.access.SetEmitter(emitter)
}

// SetLogger overrides the structured logger used by the ledger.
func (l *Ledger) SetLogger(log *slog.Logger) {
	if log == nil {
		return
	}
	l.log = log
}

// SetNowFunc overrides the registration time source. Primarily for tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	l.catalog.SetNowFunc(now)
}

func identity(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// RegisterContent stores a new content record owned by the caller.
func (l *Ledger) RegisterContent(caller [20]byte, id uint64, ratePerUnit *big.Int, maxUnits uint64, title string, data []byte) (*catalog.Content, error) {
	content, err := l.catalog.Register(caller, id, ratePerUnit, maxUnits, title, data)
	if err != nil {
		l.log.Error("content registration rejected", slog.Uint64("contentId", id), slog.String("creator", identity(caller)), slog.Any("error", err))
		return nil, err
	}
	l.log.Info("content registered", slog.Uint64("contentId", id), slog.String("creator", identity(caller)), slog.String("rate", content.RatePerUnit.String()), slog.Uint64("maxUnits", maxUnits))
	return content, nil
}

// GetContent returns the record stored under the content id.
func (l *Ledger) GetContent(id uint64) (*catalog.Content, error) {
	return l.catalog.Get(id)
}

// ContentIDs enumerates registered content ids in insertion order.
func (l *Ledger) ContentIDs() ([]uint64, error) {
	return l.catalog.ListIDs()
}

// DepositToEscrow credits the caller's prepaid balance. The host moves the
// inbound value into custody before invoking this.
func (l *Ledger) DepositToEscrow(caller [20]byte, amount *big.Int) error {
	if err := l.escrow.Deposit(caller, amount); err != nil {
		l.log.Error("escrow deposit rejected", slog.String("user", identity(caller)), slog.Any("error", err))
		return err
	}
	l.log.Info("escrow deposited", slog.String("user", identity(caller)), slog.String("amount", amount.String()))
	return nil
}

// WithdrawEscrow returns the caller's full prepaid balance through the
// transfer gateway.
func (l *Ledger) WithdrawEscrow(caller [20]byte) (*big.Int, error) {
	paid, err := l.escrow.Withdraw(caller)
	if err != nil {
		l.log.Error("escrow withdrawal rejected", slog.String("user", identity(caller)), slog.Any("error", err))
		return nil, err
	}
	l.log.Info("escrow withdrawn", slog.String("user", identity(caller)), slog.String("amount", paid.String()))
	return paid, nil
}

// AccessContent settles a purchase of content units for the caller and
// returns the total cost and the caller's new usage total.
func (l *Ledger) AccessContent(caller [20]byte, contentID uint64, units uint64) (*big.Int, uint64, error) {
	cost, newTotal, err := l.access.Consume(caller, contentID, units)
	if err != nil {
		l.log.Error("content access rejected", slog.Uint64("contentId", contentID), slog.String("user", identity(caller)), slog.Uint64("units", units), slog.Any("error", err))
		return nil, 0, err
	}
	l.log.Info("content accessed", slog.Uint64("contentId", contentID), slog.String("user", identity(caller)), slog.Uint64("units", units), slog.String("cost", cost.String()), slog.Uint64("newTotal", newTotal))
	return cost, newTotal, nil
}

// WithdrawEarnings pays out the caller's aggregate earnings after verifying
// they created the supplied content.
func (l *Ledger) WithdrawEarnings(caller [20]byte, contentID uint64) (*big.Int, error) {
	paid, err := l.access.WithdrawEarnings(caller, contentID)
	if err != nil {
		l.log.Error("earnings withdrawal rejected", slog.Uint64("contentId", contentID), slog.String("creator", identity(caller)), slog.Any("error", err))
		return nil, err
	}
	l.log.Info("earnings withdrawn", slog.Uint64("contentId", contentID), slog.String("creator", identity(caller)), slog.String("amount", paid.String()))
	return paid, nil
}

// Usage returns the cumulative units the user has purchased for the content.
func (l *Ledger) Usage(user [20]byte, contentID uint64) (uint64, error) {
	return l.meter.Consumed(user, contentID)
}

// EscrowBalance returns the user's prepaid balance.
func (l *Ledger) EscrowBalance(user [20]byte) (*big.Int, error) {
	return l.escrow.BalanceOf(user)
}

// EarningsBalance returns the creator's withdrawable earnings.
func (l *Ledger) EarningsBalance(creator [20]byte) (*big.Int, error) {
	return l.earnings.BalanceOf(creator)
}

// ValueFlows returns the all-time deposited and paid-out totals. Their
// difference equals the value currently held across escrow and earnings.
func (l *Ledger) ValueFlows() (deposited, paidOut *big.Int, err error) {
	deposited, err = l.state.ValueDeposited()
	if err != nil {
		return nil, nil, err
	}
	paidOut, err = l.state.ValuePaidOut()
	if err != nil {
		return nil, nil, err
	}
	return deposited, paidOut, nil
}
