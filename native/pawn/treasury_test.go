package pawn

import (
	"errors"
	"math/big"
	"testing"
)

func TestTreasuryWithdrawNativeLeavesReserveFloor(t *testing.T) {
	state := newMockState()
	collector := newTestAddress(0x0F)
	destination := newTestAddress(0x10)
	treasury := NewTreasury(state, collector, big.NewInt(1_000_000))

	state.setNative(TreasuryAddress(AssetNative), 5_000_000)
	swept, err := treasury.Withdraw(collector, AssetNative, destination)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if swept.Uint64() != 4_000_000 {
		t.Fatalf("swept %d, want 4000000", swept.Uint64())
	}
	if got := state.native(TreasuryAddress(AssetNative)); got != 1_000_000 {
		t.Fatalf("treasury retains %d, want the reserve floor 1000000", got)
	}
	if got := state.native(destination); got != 4_000_000 {
		t.Fatalf("destination received %d, want 4000000", got)
	}
}

func TestTreasuryWithdrawBelowFloorIsNoop(t *testing.T) {
	state := newMockState()
	collector := newTestAddress(0x0F)
	treasury := NewTreasury(state, collector, big.NewInt(1_000_000))

	state.setNative(TreasuryAddress(AssetNative), 999_999)
	swept, err := treasury.Withdraw(collector, AssetNative, newTestAddress(0x10))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if swept.Sign() != 0 {
		t.Fatalf("swept %s below the reserve floor, want 0", swept)
	}
	if got := state.native(TreasuryAddress(AssetNative)); got != 999_999 {
		t.Fatalf("treasury balance changed to %d", got)
	}
}

func TestTreasuryWithdrawTokenSweepsAll(t *testing.T) {
	state := newMockState()
	collector := newTestAddress(0x0F)
	destination := newTestAddress(0x10)
	treasury := NewTreasury(state, collector, big.NewInt(1_000_000))

	const asset = AssetID("USDX")
	state.setToken(TreasuryAddress(asset), asset, 7_500)
	swept, err := treasury.Withdraw(collector, asset, destination)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Token accounts carry no existence rent, so no floor applies.
	if swept.Uint64() != 7_500 {
		t.Fatalf("swept %d, want the full 7500", swept.Uint64())
	}
	if got := state.token(TreasuryAddress(asset), asset); got != 0 {
		t.Fatalf("treasury retains %d token units, want 0", got)
	}
	if got := state.token(destination, asset); got != 7_500 {
		t.Fatalf("destination received %d token units, want 7500", got)
	}
}

func TestTreasuryWithdrawRejectsNonCollector(t *testing.T) {
	state := newMockState()
	treasury := NewTreasury(state, newTestAddress(0x0F), big.NewInt(0))
	if _, err := treasury.Withdraw(newTestAddress(0x99), AssetNative, newTestAddress(0x10)); !errors.Is(err, errUnauthorizedCaller) {
		t.Fatalf("expected errUnauthorizedCaller, got %v", err)
	}
}

func TestTreasuryAddressDistinctPerAsset(t *testing.T) {
	if TreasuryAddress(AssetNative) == TreasuryAddress("USDX") {
		t.Fatalf("treasury custody accounts collide across assets")
	}
}
