package ais

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sealane/aistrack/ais/geo"
)

// OwnShipFix is what a PositionProvider reports for the own vessel at a
// point in time: a position/motion snapshot plus the time it was last
// refreshed, so callers can judge staleness themselves.
type OwnShipFix struct {
	Position         *geo.Position
	CourseOverGround *float64
	SpeedOverGround  *float64
	TrueHeading      *uint16
	MessageTime      time.Time
}

// PositionProvider answers "where and how is the own ship moving, as of
// now". The AIS manager's ownership of this collaborator is read-only: it
// never pushes updates into it directly, only through SendSentence, which
// forwards every sentence to whatever feeds the provider.
type PositionProvider interface {
	TryGetCurrentPosition(now time.Time) (fix OwnShipFix, ok bool)
}

// SentenceCache is a minimal PositionProvider that remembers the most
// recent position and motion fields reported by position/course/speed
// sentences, independent of AIS: a GPS or heading sensor feeding plain
// NMEA (GLL/RMC/VTG/HDT) into the same pipeline updates it directly via
// Update, without ever going through the AIS codec.
type SentenceCache struct {
	mu  sync.Mutex
	fix OwnShipFix
	has bool
}

// NewSentenceCache constructs an empty cache; TryGetCurrentPosition reports
// !ok until the first Update.
func NewSentenceCache() *SentenceCache {
	return &SentenceCache{}
}

// Update replaces whichever fields of fix are non-nil (or, for Position,
// non-nil) into the cache, and records messageTime as the refresh time.
// Fields left nil/zero keep their previous cached value.
func (c *SentenceCache) Update(fix OwnShipFix, messageTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fix.Position != nil {
		c.fix.Position = fix.Position
	}
	if fix.CourseOverGround != nil {
		c.fix.CourseOverGround = fix.CourseOverGround
	}
	if fix.SpeedOverGround != nil {
		c.fix.SpeedOverGround = fix.SpeedOverGround
	}
	if fix.TrueHeading != nil {
		c.fix.TrueHeading = fix.TrueHeading
	}
	c.fix.MessageTime = messageTime
	c.has = true
}

// TryGetCurrentPosition implements PositionProvider.
func (c *SentenceCache) TryGetCurrentPosition(now time.Time) (OwnShipFix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fix, c.has
}

// Observe implements SentenceSink: Manager.SendSentence forwards every
// sentence it is given here unconditionally (spec.md §4.2 step 1), so this
// cache can pick its own position/course/speed/heading out of whichever
// plain NMEA sentences (GLL/RMC/VTG/HDT) share the feed with AIS traffic,
// without ever going through the AIS codec.
func (c *SentenceCache) Observe(source string, sentence Sentence) {
	fix, ok := parseNmeaFix(sentence.Raw)
	if !ok {
		return
	}
	c.Update(fix, sentence.Timestamp)
}

// parseNmeaFix extracts whichever of position/course/speed/heading raw's
// sentence type carries, by the same cheap comma-split/talker-suffix check
// replay.isZDA uses rather than a full NMEA field parser — full sentence
// parsing is an external collaborator's job, this only recognises the
// handful of sentence types that feed the own-ship fix.
func parseNmeaFix(raw string) (OwnShipFix, bool) {
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "$"), "!")
	if i := strings.IndexByte(raw, '*'); i >= 0 {
		raw = raw[:i]
	}
	fields := strings.Split(raw, ",")
	if len(fields) == 0 || len(fields[0]) < 5 {
		return OwnShipFix{}, false
	}
	sentenceType := fields[0][len(fields[0])-3:]

	switch sentenceType {
	case "RMC":
		return parseRMC(fields)
	case "GLL":
		return parseGLL(fields)
	case "VTG":
		return parseVTG(fields)
	case "HDT":
		return parseHDT(fields)
	default:
		return OwnShipFix{}, false
	}
}

// parseRMC reads $--RMC,time,status,lat,N/S,lon,E/W,speed,course,date,...
func parseRMC(f []string) (OwnShipFix, bool) {
	if len(f) < 9 {
		return OwnShipFix{}, false
	}
	var fix OwnShipFix
	got := false
	if pos, ok := parseLatLon(f[3], f[4], f[5], f[6]); ok {
		fix.Position = &pos
		got = true
	}
	if sog, err := strconv.ParseFloat(f[7], 64); err == nil {
		fix.SpeedOverGround = &sog
		got = true
	}
	if cog, err := strconv.ParseFloat(f[8], 64); err == nil {
		fix.CourseOverGround = &cog
		got = true
	}
	return fix, got
}

// parseGLL reads $--GLL,lat,N/S,lon,E/W,time,status,...
func parseGLL(f []string) (OwnShipFix, bool) {
	if len(f) < 5 {
		return OwnShipFix{}, false
	}
	pos, ok := parseLatLon(f[1], f[2], f[3], f[4])
	if !ok {
		return OwnShipFix{}, false
	}
	return OwnShipFix{Position: &pos}, true
}

// parseVTG reads $--VTG,course,T,,M,speedKnots,N,speedKmh,K
func parseVTG(f []string) (OwnShipFix, bool) {
	if len(f) < 6 {
		return OwnShipFix{}, false
	}
	var fix OwnShipFix
	got := false
	if cog, err := strconv.ParseFloat(f[1], 64); err == nil {
		fix.CourseOverGround = &cog
		got = true
	}
	if sog, err := strconv.ParseFloat(f[5], 64); err == nil {
		fix.SpeedOverGround = &sog
		got = true
	}
	return fix, got
}

// parseHDT reads $--HDT,heading,T
func parseHDT(f []string) (OwnShipFix, bool) {
	if len(f) < 2 {
		return OwnShipFix{}, false
	}
	heading, err := strconv.ParseFloat(f[1], 64)
	if err != nil {
		return OwnShipFix{}, false
	}
	h := uint16(heading)
	return OwnShipFix{TrueHeading: &h}, true
}

// parseLatLon converts NMEA's ddmm.mmm/hemisphere pairs into a decimal
// degree Position, rejecting anything outside the valid range.
func parseLatLon(latField, latHemi, lonField, lonHemi string) (geo.Position, bool) {
	lat, ok := parseNmeaCoordinate(latField, 2)
	if !ok {
		return geo.Position{}, false
	}
	lon, ok := parseNmeaCoordinate(lonField, 3)
	if !ok {
		return geo.Position{}, false
	}
	if latHemi == "S" {
		lat = -lat
	}
	if lonHemi == "W" {
		lon = -lon
	}
	pos := geo.Position{Latitude: lat, Longitude: lon}
	if !pos.Valid() {
		return geo.Position{}, false
	}
	return pos, true
}

// parseNmeaCoordinate splits a ddmm.mmm (or dddmm.mmm) field into degrees
// and decimal minutes, given the fixed width of the degrees part.
func parseNmeaCoordinate(field string, degreeDigits int) (float64, bool) {
	if len(field) <= degreeDigits {
		return 0, false
	}
	degrees, err := strconv.ParseFloat(field[:degreeDigits], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(field[degreeDigits:], 64)
	if err != nil {
		return 0, false
	}
	return degrees + minutes/60, true
}
