package state

import (
	"encoding/binary"
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"paywall/storage"
)

// Manager is the single shared ledger state. Every engine talks to it
// through its own narrow interface; no component reaches around another's
// accessors to touch the underlying store directly.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	contentRecordPrefix  = []byte("catalog/record/")
	contentIndexKeyBytes = ethcrypto.Keccak256([]byte("catalog/index"))
	escrowBalancePrefix  = []byte("escrow/balance/")
	earningsPrefix       = []byte("earnings/balance/")
	usageCounterPrefix   = []byte("usage/counter/")
	depositedTotalKey    = ethcrypto.Keccak256([]byte("flow/deposited"))
	paidOutTotalKey      = ethcrypto.Keccak256([]byte("flow/paid-out"))
)

func contentKey(id uint64) []byte {
	buf := make([]byte, len(contentRecordPrefix)+8)
	copy(buf, contentRecordPrefix)
	binary.BigEndian.PutUint64(buf[len(contentRecordPrefix):], id)
	return ethcrypto.Keccak256(buf)
}

func escrowBalanceKey(addr [20]byte) []byte {
	buf := make([]byte, len(escrowBalancePrefix)+len(addr))
	copy(buf, escrowBalancePrefix)
	copy(buf[len(escrowBalancePrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func earningsBalanceKey(addr [20]byte) []byte {
	buf := make([]byte, len(earningsPrefix)+len(addr))
	copy(buf, earningsPrefix)
	copy(buf[len(earningsPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func usageCounterKey(user [20]byte, contentID uint64) []byte {
	buf := make([]byte, len(usageCounterPrefix)+len(user)+8)
	copy(buf, usageCounterPrefix)
	copy(buf[len(usageCounterPrefix):], user[:])
	binary.BigEndian.PutUint64(buf[len(usageCounterPrefix)+len(user):], contentID)
	return ethcrypto.Keccak256(buf)
}

// get returns the stored value, or nil when the key is absent.
func (m *Manager) get(key []byte) ([]byte, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) loadBigInt(key []byte) (*big.Int, error) {
	data, err := m.get(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	value := new(big.Int)
	if err := rlp.DecodeBytes(data, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) writeBigInt(key []byte, value *big.Int) error {
	if value == nil {
		value = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) loadUint64(key []byte) (uint64, error) {
	data, err := m.get(key)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	var value uint64
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Manager) writeUint64(key []byte, value uint64) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}
