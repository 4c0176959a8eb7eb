package catalog

import "math/big"

// Content describes a registered piece of pay-per-use content. Records are
// immutable after registration; only the surrounding ledgers change.
type Content struct {
	ID           uint64   `json:"id"`
	Creator      [20]byte `json:"creator"`
	RatePerUnit  *big.Int `json:"ratePerUnit"`
	MaxUnits     uint64   `json:"maxUnits"` // 0 = unlimited
	Title        string   `json:"title"`
	Data         []byte   `json:"data"`
	RegisteredAt int64    `json:"registeredAt"`
}

// Clone returns a deep copy of the content record.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	clone := *c
	if c.RatePerUnit != nil {
		clone.RatePerUnit = new(big.Int).Set(c.RatePerUnit)
	}
	if c.Data != nil {
		clone.Data = append([]byte(nil), c.Data...)
	}
	return &clone
}
