package geo

import (
	"math"
	"testing"
	"time"
)

func TestDistanceBearingRoundTrip(t *testing.T) {
	a := Position{Latitude: 51.0, Longitude: -1.0}
	dist, bearing := DistanceBearing(a, Position{Latitude: 51.1, Longitude: -1.0})
	back := Destination(a, dist, bearing)
	if math.Abs(back.Latitude-51.1) > 1e-6 {
		t.Fatalf("got latitude %v", back.Latitude)
	}
}

func TestRelativeToHeadOnCollisionCourse(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	own := Fix{Position: Position{Latitude: 0, Longitude: 0}, CourseOverGround: 0, SpeedOverGround: 10}
	// Target directly north, closing at the same speed on a reciprocal course.
	target := Fix{Position: Position{Latitude: 0.1, Longitude: 0}, CourseOverGround: 180, SpeedOverGround: 10}

	rel := RelativeTo(own, target, now)
	if rel.ClosestPointOfApproach > 50 {
		t.Fatalf("expected a near-zero CPA for a head-on collision course, got %v metres", rel.ClosestPointOfApproach)
	}
	if !rel.TimeOfClosestPointOfApproach.After(now) {
		t.Fatalf("expected TCPA to be in the future, got %v", rel.TimeOfClosestPointOfApproach)
	}
}

func TestRelativeToStationaryTargetConstantRange(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	own := Fix{Position: Position{Latitude: 0, Longitude: 0}, CourseOverGround: CourseNa, SpeedOverGround: SpeedNa}
	target := Fix{Position: Position{Latitude: 0.05, Longitude: 0}, CourseOverGround: CourseNa, SpeedOverGround: SpeedNa}

	rel := RelativeTo(own, target, now)
	if math.Abs(rel.ClosestPointOfApproach-rel.Distance) > 1 {
		t.Fatalf("two stationary targets have no closing motion, CPA should equal current distance: cpa=%v distance=%v", rel.ClosestPointOfApproach, rel.Distance)
	}
	if rel.TimeOfClosestPointOfApproach != now {
		t.Fatalf("expected CPA time to be now when there is no relative motion, got %v", rel.TimeOfClosestPointOfApproach)
	}
}

func TestPositionValid(t *testing.T) {
	if !(Position{Latitude: 45, Longitude: 90}).Valid() {
		t.Fatalf("expected a valid position to be valid")
	}
	if (Position{Latitude: LatitudeNa, Longitude: 0}).Valid() {
		t.Fatalf("expected the latitude sentinel to be invalid")
	}
}
