package ais

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRateOfTurnRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := int8(rapid.IntRange(-127, 127).Draw(t, "raw"))

		rot := decodeRateOfTurn(raw)
		got := encodeRateOfTurn(rot)

		assert.InDeltaf(t, float64(raw), float64(got), 1,
			"rate-of-turn decode/encode should round-trip within rounding error, raw=%d decoded=%v got=%d", raw, rot, got)
	})
}

func TestRateOfTurnNotAvailableRoundTrips(t *testing.T) {
	if decodeRateOfTurn(-128) != nil {
		t.Fatalf("-128 must decode to no rate of turn")
	}
	if encodeRateOfTurn(nil) != -128 {
		t.Fatalf("no rate of turn must encode to -128")
	}
}

func TestWarningLedgerRepeatTimeoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		gapSeconds := rapid.IntRange(0, int(2*WarningRepeatTimeout/time.Second)).Draw(t, "gapSeconds")

		l := NewWarningLedger()
		t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Duration(gapSeconds) * time.Second)

		assert.True(t, l.Offer("id", "text", t1), "first issuance must never be suppressed")

		got := l.Offer("id", "text", t2)
		want := t2.Sub(t1) >= WarningRepeatTimeout
		assert.Equalf(t, want, got, "gap=%v threshold=%v", t2.Sub(t1), WarningRepeatTimeout)
	})
}

func TestComposeETANeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		month := uint(rapid.IntRange(0, 15).Draw(t, "month"))
		day := uint(rapid.IntRange(0, 35).Draw(t, "day"))
		hour := uint(rapid.IntRange(0, 30).Draw(t, "hour"))
		minute := uint(rapid.IntRange(0, 70).Draw(t, "minute"))

		eta := composeETA(now, month, day, hour, minute)
		if eta != nil {
			assert.GreaterOrEqual(t, eta.Year(), now.Year())
		}
	})
}
