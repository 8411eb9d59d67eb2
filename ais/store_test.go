package ais

import (
	"testing"
	"time"

	"github.com/sealane/aistrack/ais/geo"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ship := GetOrCreate(s, 244000001, NewShip, &now)
	if ship.Mmsi != 244000001 {
		t.Fatalf("got mmsi %d", ship.Mmsi)
	}
	if !ship.LastSeen.Equal(now) {
		t.Fatalf("lastSeen not applied: %v", ship.LastSeen)
	}

	later := now.Add(time.Minute)
	again := GetOrCreate(s, 244000001, NewShip, &later)
	if again.Mmsi != ship.Mmsi {
		t.Fatalf("got mmsi %d, want %d", again.Mmsi, ship.Mmsi)
	}
	if !ship.LastSeen.Equal(now) {
		t.Fatalf("copy-on-write must not retroactively change a previously returned pointer's lastSeen, got %v", ship.LastSeen)
	}
	if !again.LastSeen.Equal(later) {
		t.Fatalf("got lastSeen %v, want %v", again.LastSeen, later)
	}
}

func TestStoreVariantReplace(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	GetOrCreate(s, 1, NewShip, &now)
	base := GetOrCreate(s, 1, NewBaseStation, &now)
	if base.Mmsi != 1 {
		t.Fatalf("got mmsi %d", base.Mmsi)
	}

	target, ok := s.TryGet(1)
	if !ok {
		t.Fatalf("expected a target for mmsi 1")
	}
	if _, isBaseStation := target.(*BaseStation); !isBaseStation {
		t.Fatalf("expected the stored target to have been replaced with a BaseStation, got %T", target)
	}
}

func TestStoreMutateIsCopyOnWrite(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	first := Mutate(s, 1, NewShip, &now, func(sh *Ship) {
		name := "first"
		sh.Name = &name
	})

	second := Mutate(s, 1, NewShip, &now, func(sh *Ship) {
		name := "second"
		sh.Name = &name
	})

	if *first.Name != "first" {
		t.Fatalf("mutating the store must not retroactively change a previously returned pointer, got %q", *first.Name)
	}
	if *second.Name != "second" {
		t.Fatalf("got %q", *second.Name)
	}
}

func TestStoreSnapshotAndLen(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	GetOrCreate(s, 1, NewShip, &now)
	GetOrCreate(s, 2, NewBaseStation, &now)

	if s.Len() != 2 {
		t.Fatalf("got len %d", s.Len())
	}
	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("got snapshot len %d", len(snap))
	}
}

func TestStoreRemoveIf(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	GetOrCreate(s, 1, NewShip, &now)
	stale := now.Add(-time.Hour)
	GetOrCreate(s, 2, NewShip, &stale)

	removed := s.RemoveIf(func(t Target) bool {
		return now.Sub(t.Seen()) > time.Minute
	})
	if removed != 1 {
		t.Fatalf("got removed %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("got len %d", s.Len())
	}
}

func TestStoreSetRelativePosition(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()
	GetOrCreate(s, 1, NewShip, &now)

	rel := &geo.RelativePosition{Distance: 100}
	s.SetRelativePosition(1, rel)

	target, _ := s.TryGet(1)
	if target.Relative() == nil || target.Relative().Distance != 100 {
		t.Fatalf("expected relative position to be published")
	}
}
