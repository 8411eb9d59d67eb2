package ais

import (
	"fmt"
	"sync"
	"time"

	"github.com/sealane/aistrack/ais/geo"
)

// minimumAlarmSleep floors the per-sweep sleep so a very slow geometry pass
// can never spin the worker hot.
const minimumAlarmSleep = 20 * time.Millisecond

// alarmLoop is the AIS manager's background CPA/TCPA surveillance worker.
// It owns its own goroutine, started on enable and joined on disable —
// spawned directly with go/sync.WaitGroup rather than a pooled worker
// library, since there is exactly one of these per manager and its
// lifecycle is entirely start/stop, not task scheduling.
type alarmLoop struct {
	m *Manager

	mu      sync.Mutex
	enabled bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func newAlarmLoop(m *Manager) *alarmLoop {
	return &alarmLoop{m: m}
}

func (a *alarmLoop) enable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled {
		return
	}
	a.enabled = true
	a.stop = make(chan struct{})
	a.wg.Add(1)
	go a.run(a.stop)
}

func (a *alarmLoop) disable() {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}
	a.enabled = false
	stop := a.stop
	a.mu.Unlock()

	close(stop)
	a.wg.Wait()
}

func (a *alarmLoop) run(stop <-chan struct{}) {
	defer a.wg.Done()
	for {
		start := a.m.clock.Now()
		a.step(start)
		elapsed := a.m.clock.Now().Sub(start)

		params := a.m.currentTrackEstimationParameters()
		remaining := params.AisSafetyCheckInterval - elapsed
		if remaining < minimumAlarmSleep {
			remaining = minimumAlarmSleep
		}
		select {
		case <-stop:
			return
		case <-a.m.clock.After(remaining):
		}
	}
}

// step runs one sweep of the surveillance loop: §4.6 steps 1–6. It is
// exported to the package (not just run) so tests can drive exactly one
// iteration without starting a goroutine, matching the spec's "one test
// execution with the flag initially false" allowance.
func (a *alarmLoop) step(now time.Time) {
	m := a.m
	params := m.currentTrackEstimationParameters()

	ownShip, ok := m.GetOwnShipData(now)
	if !ok {
		if params.WarnIfGnssMissing {
			m.warnGnssMissing(ownShip, now)
		}
		return
	}

	targets := m.store.Snapshot()
	ownFix := geo.Fix{
		Position:         *ownShip.Position,
		CourseOverGround: courseOrNa(ownShip.CourseOverGround),
		SpeedOverGround:  speedOrNa(ownShip.SpeedOverGround),
	}

	type warn struct {
		id, text string
		mmsi     uint32
	}
	var toWarn []warn

	for _, t := range targets {
		pos := t.Pos()
		if pos == nil {
			continue
		}
		targetFix := fixOf(t, *pos)
		diff := geo.RelativeTo(ownFix, targetFix, now)
		m.store.SetRelativePosition(t.MMSI(), &diff)

		tcpa := diff.TimeToClosestPointOfApproach(now)
		if diff.ClosestPointOfApproach < params.WarningDistance && tcpa > -time.Minute && tcpa < params.WarningTime {
			name := "Unknown"
			if n := t.DisplayName(); n != nil {
				name = *n
			}
			text := fmt.Sprintf("%s is dangerously close. CPA %.0fm; TCPA %s", name, diff.ClosestPointOfApproach, formatMinSec(tcpa))
			toWarn = append(toWarn, warn{id: fmt.Sprintf("DANGEROUS VESSEL-%d", t.MMSI()), text: text, mmsi: t.MMSI()})
		}
	}

	// Warning emission happens outside the geometry pass above: per
	// spec.md §5 it must not be interleaved with store access, since
	// broadcast encoding and callbacks may be slow or reentrant.
	for _, w := range toWarn {
		m.SendWarningMessage(w.id, w.mmsi, w.text, now)
	}
}

func fixOf(t Target, pos geo.Position) geo.Fix {
	switch v := t.(type) {
	case *Ship:
		return geo.Fix{Position: pos, CourseOverGround: courseOrNa(v.CourseOverGround), SpeedOverGround: speedOrNa(v.SpeedOverGround)}
	case *SarAircraft:
		return geo.Fix{Position: pos, CourseOverGround: courseOrNa(v.CourseOverGround), SpeedOverGround: speedOrNa(v.SpeedOverGround)}
	default:
		return geo.Fix{Position: pos, CourseOverGround: geo.CourseNa, SpeedOverGround: geo.SpeedNa}
	}
}

func courseOrNa(c *float64) float64 {
	if c == nil {
		return geo.CourseNa
	}
	return *c
}

func speedOrNa(s *float64) float64 {
	if s == nil {
		return geo.SpeedNa
	}
	return *s
}

func formatMinSec(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%s%02d:%02d", sign, total/60, total%60)
}

// warnGnssMissing emits "GNSSOLD" when own ship has a position but it is
// stale, or "NOGNSS" when there is no position at all.
func (m *Manager) warnGnssMissing(ownShip Ship, now time.Time) {
	if ownShip.Position != nil {
		m.SendWarningMessage("GNSSOLD", m.cfg.OwnMmsi, "Own ship GNSS position is stale", now)
		return
	}
	m.SendWarningMessage("NOGNSS", m.cfg.OwnMmsi, "Own ship has no GNSS position", now)
}

func (m *Manager) currentTrackEstimationParameters() TrackEstimationParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.TrackEstimationParameters
}
