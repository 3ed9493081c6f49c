package cache

import "testing"

func TestAnchorListKey(t *testing.T) {
	if got := AnchorListKey(50, 0); got != "anchor:list:50:0" {
		t.Errorf("AnchorListKey(50, 0): expected anchor:list:50:0, got %s", got)
	}

	// Same inputs always produce the same key
	if AnchorListKey(20, 40) != AnchorListKey(20, 40) {
		t.Error("AnchorListKey is not deterministic")
	}

	// Distinct pagination produces distinct keys
	if AnchorListKey(50, 0) == AnchorListKey(50, 50) {
		t.Error("expected different keys for different offsets")
	}
}

func TestCorridorListKey(t *testing.T) {
	fp := "sr_min:nil_sr_max:nil_vol_min:nil_vol_max:nil_asset:nil_period:nil"

	got := CorridorListKey(50, 0, fp)
	want := "corridor:list:50:0:" + fp
	if got != want {
		t.Errorf("CorridorListKey: expected %s, got %s", want, got)
	}

	// Different fingerprints must never collide
	if CorridorListKey(50, 0, "a") == CorridorListKey(50, 0, "b") {
		t.Error("expected different keys for different fingerprints")
	}
}
