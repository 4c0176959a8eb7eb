package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"paywall/native/catalog"
)

type storedContent struct {
	ID           uint64
	Creator      [20]byte
	RatePerUnit  *big.Int
	MaxUnits     uint64
	Title        string
	Data         []byte
	RegisteredAt uint64
}

func newStoredContent(c *catalog.Content) *storedContent {
	if c == nil {
		return nil
	}
	rate := big.NewInt(0)
	if c.RatePerUnit != nil {
		rate = new(big.Int).Set(c.RatePerUnit)
	}
	registeredAt := uint64(0)
	if c.RegisteredAt > 0 {
		registeredAt = uint64(c.RegisteredAt)
	}
	return &storedContent{
		ID:           c.ID,
		Creator:      c.Creator,
		RatePerUnit:  rate,
		MaxUnits:     c.MaxUnits,
		Title:        c.Title,
		Data:         append([]byte(nil), c.Data...),
		RegisteredAt: registeredAt,
	}
}

func (s *storedContent) toContent() (*catalog.Content, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil content record")
	}
	out := &catalog.Content{
		ID:           s.ID,
		Creator:      s.Creator,
		RatePerUnit:  big.NewInt(0),
		MaxUnits:     s.MaxUnits,
		Title:        s.Title,
		Data:         append([]byte(nil), s.Data...),
		RegisteredAt: int64(s.RegisteredAt),
	}
	if s.RatePerUnit != nil {
		out.RatePerUnit = new(big.Int).Set(s.RatePerUnit)
	}
	return out, nil
}

// ContentPut persists the content record under its id.
func (m *Manager) ContentPut(c *catalog.Content) error {
	if c == nil {
		return fmt.Errorf("state: nil content")
	}
	encoded, err := rlp.EncodeToBytes(newStoredContent(c))
	if err != nil {
		return err
	}
	return m.db.Put(contentKey(c.ID), encoded)
}

// ContentDelete removes the record stored under the id. Only used to unwind
// a registration whose index append failed; committed records never go away.
func (m *Manager) ContentDelete(id uint64) error {
	return m.db.Delete(contentKey(id))
}

// ContentGet reconstructs the content record stored under the id.
func (m *Manager) ContentGet(id uint64) (*catalog.Content, bool, error) {
	data, err := m.get(contentKey(id))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	stored := new(storedContent)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, err
	}
	record, err := stored.toContent()
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// ContentIDs returns the registered content ids in insertion order.
func (m *Manager) ContentIDs() ([]uint64, error) {
	data, err := m.get(contentIndexKeyBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []uint64{}, nil
	}
	var ids []uint64
	if err := rlp.DecodeBytes(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ContentIDAppend appends the id to the enumeration index. The index is
// append-only; records are never deleted.
func (m *Manager) ContentIDAppend(id uint64) error {
	ids, err := m.ContentIDs()
	if err != nil {
		return err
	}
	ids = append(ids, id)
	encoded, err := rlp.EncodeToBytes(ids)
	if err != nil {
		return err
	}
	return m.db.Put(contentIndexKeyBytes, encoded)
}
