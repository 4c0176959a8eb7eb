package state

import (
	"math/big"
	"testing"

	"paywall/native/catalog"
	"paywall/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestContentRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	record := &catalog.Content{
		ID:           7,
		Creator:      addr(0x0C),
		RatePerUnit:  big.NewInt(125),
		MaxUnits:     9,
		Title:        "episode one",
		Data:         []byte("ipfs://cid"),
		RegisteredAt: 1_700_000_000,
	}
	if err := manager.ContentPut(record); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	loaded, ok, err := manager.ContentGet(7)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if loaded.Creator != record.Creator || loaded.Title != record.Title {
		t.Fatalf("record mismatch: %+v", loaded)
	}
	if loaded.RatePerUnit.Cmp(record.RatePerUnit) != 0 || loaded.MaxUnits != 9 {
		t.Fatalf("pricing mismatch: %+v", loaded)
	}
	if loaded.RegisteredAt != record.RegisteredAt {
		t.Fatalf("timestamp mismatch: %d", loaded.RegisteredAt)
	}
	if string(loaded.Data) != "ipfs://cid" {
		t.Fatalf("data mismatch: %q", loaded.Data)
	}

	if err := manager.ContentDelete(7); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := manager.ContentGet(7); err != nil || ok {
		t.Fatalf("record survived delete: ok=%v err=%v", ok, err)
	}
}

func TestContentGetMissing(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	if _, ok, err := manager.ContentGet(404); err != nil || ok {
		t.Fatalf("expected absent record: ok=%v err=%v", ok, err)
	}
}

func TestContentIDIndexKeepsOrder(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	for _, id := range []uint64{5, 1, 9} {
		if err := manager.ContentIDAppend(id); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	ids, err := manager.ContentIDs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []uint64{5, 1, 9}
	if len(ids) != len(want) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids out of order: %v", ids)
		}
	}
}

func TestBalancesDefaultToZero(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	user := addr(0x0A)

	balance, err := manager.EscrowBalanceGet(user)
	if err != nil || balance.Sign() != 0 {
		t.Fatalf("escrow default: %s err=%v", balance, err)
	}
	earned, err := manager.EarningsBalanceGet(user)
	if err != nil || earned.Sign() != 0 {
		t.Fatalf("earnings default: %s err=%v", earned, err)
	}
	consumed, err := manager.UsageGet(user, 1)
	if err != nil || consumed != 0 {
		t.Fatalf("usage default: %d err=%v", consumed, err)
	}
}

func TestBalanceWriteRejectsInvalidValues(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	user := addr(0x0A)

	if err := manager.EscrowBalancePut(user, big.NewInt(-1)); err == nil {
		t.Fatalf("negative balance accepted")
	}
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := manager.EarningsBalancePut(user, tooWide); err == nil {
		t.Fatalf("256-bit overflow accepted")
	}
}

func TestBalanceRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	user := addr(0x0A)

	if err := manager.EscrowBalancePut(user, big.NewInt(321)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	balance, err := manager.EscrowBalanceGet(user)
	if err != nil || balance.Cmp(big.NewInt(321)) != 0 {
		t.Fatalf("roundtrip mismatch: %s err=%v", balance, err)
	}
	if err := manager.UsagePut(user, 3, 17); err != nil {
		t.Fatalf("usage put failed: %v", err)
	}
	consumed, err := manager.UsageGet(user, 3)
	if err != nil || consumed != 17 {
		t.Fatalf("usage roundtrip mismatch: %d err=%v", consumed, err)
	}
	// Counters are keyed per (user, content) pair.
	other, err := manager.UsageGet(user, 4)
	if err != nil || other != 0 {
		t.Fatalf("unexpected counter bleed: %d err=%v", other, err)
	}
}

func TestFlowTotals(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	if _, err := manager.AdjustDeposited(big.NewInt(100)); err != nil {
		t.Fatalf("adjust deposited failed: %v", err)
	}
	if _, err := manager.AdjustPaidOut(big.NewInt(30)); err != nil {
		t.Fatalf("adjust paid-out failed: %v", err)
	}
	held, err := manager.ValueHeld()
	if err != nil || held.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("unexpected held value: %s err=%v", held, err)
	}
	if _, err := manager.AdjustPaidOut(big.NewInt(-31)); err == nil {
		t.Fatalf("paid-out underflow accepted")
	}
	if _, err := manager.AdjustPaidOut(big.NewInt(-30)); err != nil {
		t.Fatalf("paid-out rollback failed: %v", err)
	}
	paidOut, err := manager.ValuePaidOut()
	if err != nil || paidOut.Sign() != 0 {
		t.Fatalf("unexpected paid-out total: %s err=%v", paidOut, err)
	}
}
