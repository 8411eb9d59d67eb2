package ais

import (
	"strings"
	"testing"
	"time"

	goais "github.com/BertoldVdb/go-ais"

	"github.com/sealane/aistrack/ais/codec"
	"github.com/sealane/aistrack/ais/geo"
	"github.com/sealane/aistrack/internal/aistime"
)

type fakePositionProvider struct {
	fix OwnShipFix
	ok  bool
}

func (f fakePositionProvider) TryGetCurrentPosition(now time.Time) (OwnShipFix, bool) {
	return f.fix, f.ok
}

func newTestManager(positions PositionProvider) *Manager {
	cfg := DefaultConfig(111111111, "TEST SHIP")
	return NewManager(cfg, aistime.Real{}, NewStore(), NewWarningLedger(), codec.New(), positions, nil)
}

func TestDispatchPositionReportCreatesShip(t *testing.T) {
	m := newTestManager(fakePositionProvider{})
	now := time.Now().UTC()

	pkt := goais.PositionReport{
		Header:      goais.Header{MessageID: 1, UserID: 244000001},
		Latitude:    51.5,
		Longitude:   -0.1,
		Cog:         90,
		Sog:         12,
		TrueHeading: 90,
		RateOfTurn:  -128,
	}
	if _, err := m.dispatch(pkt, now); err != nil {
		t.Fatalf("dispatch error: %v", err)
	}

	target, ok := m.store.TryGet(244000001)
	if !ok {
		t.Fatalf("expected a target to be created")
	}
	ship, isShip := target.(*Ship)
	if !isShip {
		t.Fatalf("got %T", target)
	}
	if ship.Position == nil || ship.Position.Latitude != 51.5 {
		t.Fatalf("got position %v", ship.Position)
	}
	if ship.RateOfTurn != nil {
		t.Fatalf("sentinel rate of turn should decode to nil, got %v", *ship.RateOfTurn)
	}
}

func TestExceptionalTargetWarnsOnSartMmsi(t *testing.T) {
	own := fakePositionProvider{
		fix: OwnShipFix{Position: &geo.Position{Latitude: 0, Longitude: 0}, MessageTime: time.Now()},
		ok:  true,
	}
	m := newTestManager(own)
	now := time.Now().UTC()

	pkt := goais.PositionReport{
		Header:      goais.Header{MessageID: 1, UserID: 970000001}, // AIS-SART MMSI range
		Latitude:    0.01,
		Longitude:   0,
		Cog:         geo.CourseNa,
		Sog:         geo.SpeedNa,
		TrueHeading: 511,
		RateOfTurn:  -128,
	}
	result, err := m.dispatch(pkt, now)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}
	if result.warning == nil {
		t.Fatalf("expected an exceptional-target warning to be raised")
	}
	if result.warning.mmsi != 970000001 {
		t.Fatalf("got mmsi %d", result.warning.mmsi)
	}
	if !strings.HasPrefix(result.warning.text, "AIS SART") {
		t.Fatalf("expected warning text to start with %q, got %q", "AIS SART", result.warning.text)
	}
}

func TestExceptionalTargetRespectsAutoSendWarnings(t *testing.T) {
	own := fakePositionProvider{
		fix: OwnShipFix{Position: &geo.Position{Latitude: 0, Longitude: 0}, MessageTime: time.Now()},
		ok:  true,
	}
	m := newTestManager(own)
	m.cfg.AutoSendWarnings = false
	now := time.Now().UTC()

	pkt := goais.PositionReport{
		Header:    goais.Header{MessageID: 1, UserID: 970000001},
		Latitude:  0.01,
		Longitude: 0,
	}
	result, err := m.dispatch(pkt, now)
	if err != nil {
		t.Fatalf("dispatch error: %v", err)
	}
	if result.warning != nil {
		t.Fatalf("expected no warning when AutoSendWarnings is disabled")
	}
}

func TestGetOwnShipDataStalePosition(t *testing.T) {
	stale := OwnShipFix{
		Position:    &geo.Position{Latitude: 1, Longitude: 1},
		MessageTime: time.Now().Add(-time.Hour),
	}
	m := newTestManager(fakePositionProvider{fix: stale, ok: true})

	_, ok := m.GetOwnShipData(time.Now())
	if ok {
		t.Fatalf("expected stale position to report not-ok")
	}
}

func TestWarningLedgerSuppressesRepeats(t *testing.T) {
	m := newTestManager(fakePositionProvider{})
	now := time.Now().UTC()
	if !m.warnings.Offer("id", "text", now) {
		t.Fatalf("first offer should succeed")
	}
	if m.warnings.Offer("id", "text", now.Add(time.Minute)) {
		t.Fatalf("expected suppression within WarningRepeatTimeout")
	}
}
