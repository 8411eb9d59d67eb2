// Package mmsi provides formatting and classification of Maritime Mobile
// Service Identities (MMSI), the 9-digit identifiers AIS stations transmit.
package mmsi

import "fmt"

// Kind classifies an MMSI by the station category its digit pattern encodes.
// https://www.navcen.uscg.gov/?pageName=mtmmsi
type Kind int

const (
	Ship Kind = iota
	BaseStation
	ShipGroup
	AidToNavigation
	CraftAssociatedWithParentShip
	SarAircraft
	DiversRadio
	AisSart  // AIS Search And Rescue Transmitter
	Epirb    // Emergency Position-Indicating Radio Beacon with an AIS transmitter
	Mob      // Man OverBoard device
)

// Format renders mmsi as the zero-padded 9-digit string AIS text fields use.
func Format(mmsi uint32) string {
	return fmt.Sprintf("%09d", mmsi)
}

// ValidMID reports whether mid, a three-digit Maritime Identification Digits
// value, falls in the allocated range [201, 775].
func ValidMID(mid int) bool {
	return mid >= 201 && mid <= 775
}

// Identify classifies mmsi by its leading digits, per the MMSI numbering
// scheme's reserved ranges for non-ship stations.
//
//	00MID...     base station
//	0MID...      group ship call
//	111MID...    SAR aircraft
//	98MID...     craft associated with a parent ship
//	970...       AIS-SART
//	972...       man-overboard device
//	974...       EPIRB-AIS
//	99MID...     aid to navigation
//	8MID...      diver's radio
func Identify(m uint32) Kind {
	s := Format(m)
	switch {
	case s[0] == '9' && s[1] == '7' && s[2] == '0':
		return AisSart
	case s[0] == '9' && s[1] == '7' && s[2] == '2':
		return Mob
	case s[0] == '9' && s[1] == '7' && s[2] == '4':
		return Epirb
	case s[0] == '0' && s[1] == '0':
		return BaseStation
	case s[0] == '0':
		return ShipGroup
	case s[0] == '1' && s[1] == '1' && s[2] == '1':
		return SarAircraft
	case s[0] == '9' && s[1] == '8':
		return CraftAssociatedWithParentShip
	case s[0] == '9' && s[1] == '9':
		return AidToNavigation
	case s[0] == '8':
		return DiversRadio
	default:
		return Ship
	}
}
