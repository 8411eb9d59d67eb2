package ais

import (
	"time"

	"github.com/sealane/aistrack/ais/geo"
)

// TransceiverClass distinguishes SOLAS-grade Class A AIS equipment from
// recreational Class B equipment.
type TransceiverClass int

const (
	TransceiverClassUnknown TransceiverClass = iota
	TransceiverClassA
	TransceiverClassB
)

// NavigationalStatus mirrors the ITU-R M.1371 navigational status codes
// carried in Class A position reports.
type NavigationalStatus uint8

const (
	NavStatusUnderWayUsingEngine NavigationalStatus = 0
	NavStatusAtAnchor            NavigationalStatus = 1
	NavStatusNotUnderCommand     NavigationalStatus = 2
	NavStatusRestrictedManoeuvrability NavigationalStatus = 3
	NavStatusConstrainedByDraught NavigationalStatus = 4
	NavStatusMoored              NavigationalStatus = 5
	NavStatusAground             NavigationalStatus = 6
	NavStatusEngagedInFishing    NavigationalStatus = 7
	NavStatusUnderWaySailing     NavigationalStatus = 8
	NavStatusAisSartIsActive     NavigationalStatus = 14
	NavStatusNotDefined          NavigationalStatus = 15
)

// Target is the base view every stored AIS contact satisfies. Callers
// obtain a concrete variant via a type switch on the value returned by
// Store.TryGet/Snapshot — this is this module's tagged sum type, realized
// as an interface rather than a oneof-of-pointers struct.
type Target interface {
	MMSI() uint32
	Seen() time.Time
	Pos() *geo.Position
	DisplayName() *string
	Relative() *geo.RelativePosition
	setSeen(time.Time)
	setRelativePosition(*geo.RelativePosition)
}

// base holds the fields every target variant shares.
type base struct {
	Mmsi     uint32
	Name     *string
	LastSeen time.Time
	Position *geo.Position
	// RelativePosition is written by the alarm surveillance loop under the
	// store's lock; it is nil until the loop has evaluated this target at
	// least once against the own ship.
	RelativePosition *geo.RelativePosition
}

func (b *base) MMSI() uint32                  { return b.Mmsi }
func (b *base) Seen() time.Time               { return b.LastSeen }
func (b *base) Pos() *geo.Position            { return b.Position }
func (b *base) DisplayName() *string          { return b.Name }
func (b *base) Relative() *geo.RelativePosition { return b.RelativePosition }
func (b *base) setSeen(t time.Time)           { b.LastSeen = t }
func (b *base) setRelativePosition(rel *geo.RelativePosition) { b.RelativePosition = rel }

// Ship is a vessel target, decoded from Class A/B position reports and
// static/voyage data messages.
type Ship struct {
	base

	CallSign    *string
	Destination *string
	Draught     *float64 // metres
	ImoNumber   *uint32
	ShipType    uint8
	Transceiver TransceiverClass

	CourseOverGround *float64 // degrees true
	SpeedOverGround  *float64 // knots
	TrueHeading      *uint16  // degrees
	RateOfTurn       *float64 // degrees/minute
	NavigationStatus NavigationalStatus

	EstimatedTimeOfArrival *time.Time

	DimensionToBow       uint16
	DimensionToStern     uint16
	DimensionToPort      uint16
	DimensionToStarboard uint16
}

// NewShip constructs a Ship with the given identity, ready for
// GetOrCreate or Mutate.
func NewShip(mmsi uint32) *Ship {
	return &Ship{base: base{Mmsi: mmsi}}
}

// FormatMmsi renders the ship's MMSI as the zero-padded 9-digit form AIS
// text fields use.
func (s *Ship) FormatMmsi() string { return formatMmsi(s.Mmsi) }

// BaseStation is a shore AIS base station, position only.
type BaseStation struct {
	base
}

func NewBaseStation(mmsi uint32) *BaseStation {
	return &BaseStation{base: base{Mmsi: mmsi}}
}

// SarAircraft is a search-and-rescue aircraft position report target.
// Rate of turn is always zero for this variant per spec.md §3.
type SarAircraft struct {
	base

	Altitude         uint16 // metres
	CourseOverGround *float64
	SpeedOverGround  *float64
	RateOfTurn       float64 // always 0
}

func NewSarAircraft(mmsi uint32) *SarAircraft {
	return &SarAircraft{base: base{Mmsi: mmsi}}
}

// AidToNavigation is a (possibly virtual) navigational aid target.
type AidToNavigation struct {
	base

	NameExtension        string
	DimensionToBow       uint16
	DimensionToStern     uint16
	DimensionToPort      uint16
	DimensionToStarboard uint16
	OffPosition          bool
	Virtual              bool
	NavigationalAidType  uint8
}

func NewAidToNavigation(mmsi uint32) *AidToNavigation {
	return &AidToNavigation{base: base{Mmsi: mmsi}}
}

func formatMmsi(m uint32) string {
	// Produces the same zero-padded 9-digit string as mmsi.Format.
	digits := [9]byte{}
	for i := 8; i >= 0; i-- {
		digits[i] = byte('0' + m%10)
		m /= 10
	}
	return string(digits[:])
}
