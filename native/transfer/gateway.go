package transfer

import (
	"errors"
	"math/big"
)

// ErrTransferFailed marks a rejected or failed outbound value transfer. The
// enclosing operation must roll back its state changes when it surfaces.
var ErrTransferFailed = errors.New("transfer: outbound transfer failed")

// Gateway moves native value out of ledger custody to an external recipient.
// It is supplied by the execution host; the ledger only ever calls it after
// committing its own state changes.
type Gateway interface {
	Send(to [20]byte, amount *big.Int) error
}

// Func adapts a plain function to the Gateway interface.
type Func func(to [20]byte, amount *big.Int) error

// Send implements the Gateway interface.
func (f Func) Send(to [20]byte, amount *big.Int) error { return f(to, amount) }
