// Package geo provides the AIS invalid-value sentinels and the
// distance/bearing/CPA geometry the alarm surveillance loop depends on.
//
// The CPA/TCPA estimate here is advisory: it assumes both vessels hold
// their current course and speed, and treats the short ranges AIS collision
// geometry is evaluated over as locally flat. It is not a replacement for
// radar-grade collision prediction.
package geo

import (
	"math"
	"time"

	"github.com/StefanSchroeder/Golang-Ellipsoid/ellipsoid"
)

// AIS field sentinels: the value an AIS unit transmits to mean "no data",
// distinct from an out-of-range value a malformed/hostile sentence might carry.
const (
	LongitudeNa  = 181.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0

	LatitudeNa  = 91.0
	LatitudeMin = -90.0
	LatitudeMax = 90.0

	CourseNa  = 360.0
	CourseMin = 0.0
	CourseMax = 359.9

	SpeedNa  = 102.3
	SpeedMin = 0.0
	SpeedMax = 102.2

	RotNa  = -128
	RotMin = -127
	RotMax = 127

	HeadingNa  = 511
	HeadingMin = 0
	HeadingMax = 359
)

var wgs84 = ellipsoid.Init(
	"WGS84",
	ellipsoid.Degrees,
	ellipsoid.Meter,
	ellipsoid.LongitudeIsSymmetric,
	ellipsoid.BearingNotSymmetric,
)

// Position is a lat/lon pair in degrees, WGS84.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether p falls within the lat/lon range the data model
// requires (spec: out-of-range values from the codec are never stored).
func (p Position) Valid() bool {
	return p.Latitude >= LatitudeMin && p.Latitude <= LatitudeMax &&
		p.Longitude >= LongitudeMin && p.Longitude <= LongitudeMax
}

// Fix is a position plus the motion vector needed to project a future track.
type Fix struct {
	Position
	CourseOverGround float64 // degrees true, CourseNa if unknown
	SpeedOverGround  float64 // knots, SpeedNa if unknown
}

// DistanceBearing returns the great-circle distance in metres and the
// initial bearing in degrees true from a to b.
func DistanceBearing(a, b Position) (distanceMeters, bearingDeg float64) {
	distanceMeters, bearingDeg = wgs84.To(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return
}

// Destination returns the position reached by travelling distanceMeters from
// p on bearingDeg (true).
func Destination(p Position, distanceMeters, bearingDeg float64) Position {
	lat, lon := wgs84.At(p.Latitude, p.Longitude, distanceMeters, bearingDeg)
	return Position{Latitude: lat, Longitude: lon}
}

// RelativePosition is the geometry of one target relative to the own ship,
// as spec.md's ShipRelativePosition.
type RelativePosition struct {
	From, To                  Fix
	Distance                  float64 // metres, at evaluation time
	Bearing                   float64 // degrees true, from From to To
	ClosestPointOfApproach    float64 // metres, minimum projected future distance
	TimeOfClosestPointOfApproach time.Time
}

// TimeToClosestPointOfApproach returns the duration from now until CPA;
// negative if CPA has already passed.
func (r RelativePosition) TimeToClosestPointOfApproach(now time.Time) time.Duration {
	return r.TimeOfClosestPointOfApproach.Sub(now)
}

// knotsToMetersPerSecond converts knots (nm/h) into metres/second.
const knotsToMetersPerSecond = 1852.0 / 3600.0

// velocityVector decomposes a course/speed pair into a local east/north
// metres-per-second vector. Course is measured clockwise from true north.
func velocityVector(courseDeg, speedKnots float64) (east, north float64) {
	if courseDeg == CourseNa || speedKnots == SpeedNa {
		return 0, 0
	}
	rad := courseDeg * math.Pi / 180
	speed := speedKnots * knotsToMetersPerSecond
	east = speed * math.Sin(rad)
	north = speed * math.Cos(rad)
	return
}

// localOffsetMeters projects b's position relative to a onto a local
// east/north tangent plane centred on a, using the geodesic distance and
// bearing so the projection stays accurate over the ranges AIS targets are
// tracked at.
func localOffsetMeters(a, b Position) (east, north float64) {
	dist, bearing := DistanceBearing(a, b)
	rad := bearing * math.Pi / 180
	east = dist * math.Sin(rad)
	north = dist * math.Cos(rad)
	return
}

// RelativeTo computes the relative position and CPA/TCPA of target against
// own, both evaluated at now, holding course and speed constant.
func RelativeTo(own, target Fix, now time.Time) RelativePosition {
	dist, bearing := DistanceBearing(own.Position, target.Position)

	relEast, relNorth := localOffsetMeters(own.Position, target.Position)
	ownEast, ownNorth := velocityVector(own.CourseOverGround, own.SpeedOverGround)
	tgtEast, tgtNorth := velocityVector(target.CourseOverGround, target.SpeedOverGround)

	// Closing velocity of target relative to own, in the own-centred plane.
	velEast := tgtEast - ownEast
	velNorth := tgtNorth - ownNorth

	tcpaSeconds := closestApproachTime(relEast, relNorth, velEast, velNorth)
	cpaDist := rangeAt(relEast, relNorth, velEast, velNorth, tcpaSeconds)

	return RelativePosition{
		From:                          own,
		To:                            target,
		Distance:                      dist,
		Bearing:                       bearing,
		ClosestPointOfApproach:        cpaDist,
		TimeOfClosestPointOfApproach:  now.Add(time.Duration(tcpaSeconds * float64(time.Second))),
	}
}

// closestApproachTime solves for the time (seconds, may be negative) at
// which |relPos + t*relVel| is minimized.
func closestApproachTime(relEast, relNorth, velEast, velNorth float64) float64 {
	speedSq := velEast*velEast + velNorth*velNorth
	if speedSq == 0 {
		// No relative motion: distance is constant, "closest approach" is now.
		return 0
	}
	t := -(relEast*velEast + relNorth*velNorth) / speedSq
	return t
}

func rangeAt(relEast, relNorth, velEast, velNorth, t float64) float64 {
	e := relEast + t*velEast
	n := relNorth + t*velNorth
	return math.Hypot(e, n)
}
