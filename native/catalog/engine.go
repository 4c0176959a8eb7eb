package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"paywall/core/events"
	"paywall/native/common"
)

var (
	ErrAlreadyRegistered = errors.New("catalog engine: content already registered")
	ErrInvalidRate       = errors.New("catalog engine: rate per unit must be positive")
	ErrNotFound          = errors.New("catalog engine: content not found")

	errNilState = errors.New("catalog engine: state not configured")
)

type engineState interface {
	ContentGet(id uint64) (*Content, bool, error)
	ContentPut(content *Content) error
	ContentDelete(id uint64) error
	ContentIDs() ([]uint64, error)
	ContentIDAppend(id uint64) error
}

// Engine wires content registration and lookup with persistence and event
// emission. Registered records never change; the only write path is the
// initial registration.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	nowFn   func() int64
}

// NewEngine constructs a catalog engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
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

// SetPauses configures the pause view consulted before registrations.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *Content) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(ContentRegisteredEvent(
		strconv.FormatUint(evt.ID, 10),
		hexAddr(evt.Creator),
		evt.RatePerUnit.String(),
		strconv.FormatUint(evt.MaxUnits, 10),
	)))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Register stores a new content record owned by the supplied creator. The
// creator identity comes from the calling context, never from the record
// itself. Re-registering an id always fails; there is no update path.
func (e *Engine) Register(creator [20]byte, id uint64, ratePerUnit *big.Int, maxUnits uint64, title string, data []byte) (*Content, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, "catalog"); err != nil {
		return nil, err
	}
	if ratePerUnit == nil || ratePerUnit.Sign() <= 0 {
		return nil, ErrInvalidRate
	}
	if _, overflow := uint256.FromBig(ratePerUnit); overflow {
		return nil, ErrInvalidRate
	}
	if existing, ok, err := e.state.ContentGet(id); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, ErrAlreadyRegistered
	}
	content := &Content{
		ID:           id,
		Creator:      creator,
		RatePerUnit:  new(big.Int).Set(ratePerUnit),
		MaxUnits:     maxUnits,
		Title:        strings.TrimSpace(title),
		Data:         append([]byte(nil), data...),
		RegisteredAt: e.now(),
	}
	if err := e.state.ContentPut(content); err != nil {
		return nil, err
	}
	if err := e.state.ContentIDAppend(id); err != nil {
		// A record outside the index would block the id forever; unwind it
		// so the registration can be retried.
		if deleteErr := e.state.ContentDelete(id); deleteErr != nil {
			return nil, errors.Join(err, fmt.Errorf("catalog engine: rollback record: %w", deleteErr))
		}
		return nil, err
	}
	e.emit(content)
	return content.Clone(), nil
}

// Get returns the content record stored under the supplied id.
func (e *Engine) Get(id uint64) (*Content, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	content, ok, err := e.state.ContentGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || content == nil {
		return nil, ErrNotFound
	}
	return content.Clone(), nil
}

// ListIDs returns every registered content id in insertion order.
func (e *Engine) ListIDs() ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.ContentIDs()
}
