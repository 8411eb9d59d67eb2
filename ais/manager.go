package ais

import (
	"fmt"
	"math"
	"sync"
	"time"

	goais "github.com/BertoldVdb/go-ais"

	"github.com/sealane/aistrack/ais/codec"
	"github.com/sealane/aistrack/ais/geo"
	"github.com/sealane/aistrack/ais/mmsi"
	"github.com/sealane/aistrack/internal/aistime"
)

// CleanupLatency bounds how often doCleanup actually scans the store, no
// matter how often SendSentence calls it.
const CleanupLatency = 30 * time.Second

// TrackEstimationParameters tunes the alarm surveillance loop and
// getOwnShipData's staleness check.
type TrackEstimationParameters struct {
	MaximumPositionAge    time.Duration
	TargetLostTimeout     time.Duration
	WarningDistance       float64 // metres
	WarningTime           time.Duration
	AisSafetyCheckInterval time.Duration
	WarnIfGnssMissing     bool
}

// DefaultTrackEstimationParameters mirrors typical recreational-AIS alarm
// settings: a five-minute GNSS staleness budget, a one nautical mile / five
// minute CPA/TCPA warning envelope, swept every two seconds.
func DefaultTrackEstimationParameters() TrackEstimationParameters {
	return TrackEstimationParameters{
		MaximumPositionAge:     5 * time.Minute,
		TargetLostTimeout:      10 * time.Minute,
		WarningDistance:        1852, // 1 nm
		WarningTime:            5 * time.Minute,
		AisSafetyCheckInterval: 2 * time.Second,
		WarnIfGnssMissing:      true,
	}
}

// Config holds the AIS manager's tunables, per spec.md §6.
type Config struct {
	OwnMmsi     uint32
	OwnShipName string

	DimensionToBow       uint16
	DimensionToStern     uint16
	DimensionToPort      uint16
	DimensionToStarboard uint16

	AutoSendWarnings           bool
	DeleteTargetAfterTimeout   time.Duration
	TrackEstimationParameters  TrackEstimationParameters
	ThrowOnUnknownMessage      bool
	GeneratedSentencesID       codec.TalkerID
}

// DefaultConfig returns a Config with the documented defaults applied.
func DefaultConfig(ownMmsi uint32, ownShipName string) Config {
	return Config{
		OwnMmsi:                   ownMmsi,
		OwnShipName:                ownShipName,
		AutoSendWarnings:           true,
		TrackEstimationParameters:  DefaultTrackEstimationParameters(),
		GeneratedSentencesID:       codec.TalkerVDO,
	}
}

// MessageHandler observes safety-related text traffic: incoming addressed
// and broadcast messages, and this manager's own outgoing broadcasts.
type MessageHandler func(received bool, sourceMmsi, destinationMmsi uint32, text string)

// SentenceSink is the "external" sentence cache's write side: every
// sentence SendSentence is given is forwarded here unconditionally, so a
// GPS/heading sensor sharing the same NMEA feed can keep its own state
// current. This core does not parse raw sentence text itself (the NMEA
// framer/parser is an external collaborator); it only routes bytes to the
// sink.
type SentenceSink interface {
	Observe(source string, sentence Sentence)
}

// Sentence is the minimal view of an inbound NMEA sentence the manager
// needs: the raw text to hand the AIS codec, and the timestamp that drives
// cleanup throttling and (in replay) the realtime pacing clock.
type Sentence struct {
	Raw       string
	Timestamp time.Time
}

// Manager is the AIS target-tracking core: it decodes inbound sentences,
// maintains the target Store, runs exceptional-target and cleanup checks,
// and can originate outbound safety broadcasts and position reports.
type Manager struct {
	mu sync.Mutex

	cfg   Config
	clock aistime.Clock

	store     *Store
	warnings  *WarningLedger
	codec     *codec.Codec
	positions PositionProvider
	sink      SentenceSink

	lastCleanup time.Time

	onMessage  MessageHandler
	onOutbound func(sentence string)

	alarms *alarmLoop
}

// NewManager wires together a target store, warning ledger, codec and
// position provider into a running AIS manager. sink and positions may be
// the same concrete SentenceCache, or nil/separate collaborators.
func NewManager(cfg Config, clock aistime.Clock, store *Store, warnings *WarningLedger, c *codec.Codec, positions PositionProvider, sink SentenceSink) *Manager {
	m := &Manager{
		cfg:       cfg,
		clock:     clock,
		store:     store,
		warnings:  warnings,
		codec:     c,
		positions: positions,
		sink:      sink,
	}
	m.alarms = newAlarmLoop(m)
	return m
}

// OnMessage registers the callback fired for incoming safety-related
// messages and for this manager's own outgoing broadcasts. Passing nil
// disables the callback.
func (m *Manager) OnMessage(h MessageHandler) { m.onMessage = h }

// OnOutboundSentence registers the callback fired once per sentence this
// manager originates (broadcasts, encoded position reports).
func (m *Manager) OnOutboundSentence(f func(sentence string)) { m.onOutbound = f }

func (m *Manager) emitMessage(received bool, source, destination uint32, text string) {
	if m.onMessage != nil {
		m.onMessage(received, source, destination, text)
	}
}

func (m *Manager) emitOutbound(sentence string) {
	if m.onOutbound != nil {
		m.onOutbound(sentence)
	}
}

// SendSentence is the ingestion entry point: it feeds the sentence cache,
// runs throttled cleanup, decodes the AIS payload (if any), and dispatches
// the result against the target store.
func (m *Manager) SendSentence(source string, sentence Sentence) error {
	if m.sink != nil {
		m.sink.Observe(source, sentence)
	}

	m.doCleanup(sentence.Timestamp)

	packet, ok, err := m.codec.Decode(sentence.Raw)
	if err != nil || !ok {
		// A sentence the codec yields no message for is a DecodeFailure and
		// is ignored.
		return nil
	}

	m.mu.Lock()
	result, err := m.dispatch(packet, sentence.Timestamp)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	// Callback/broadcast emission happens after releasing the manager
	// mutex: per spec.md §5 it must never be held across a codec encode
	// call or a user callback, to avoid reentrancy deadlocks.
	if result.message != nil {
		m.emitMessage(result.message.received, result.message.source, result.message.destination, result.message.text)
	}
	if result.warning != nil {
		m.SendWarningMessage(result.warning.id, result.warning.mmsi, result.warning.text, sentence.Timestamp)
	}
	return nil
}

// doCleanup removes targets older than DeleteTargetAfterTimeout, at most
// once per CleanupLatency.
func (m *Manager) doCleanup(now time.Time) {
	if m.cfg.DeleteTargetAfterTimeout <= 0 {
		return
	}

	m.mu.Lock()
	if now.Sub(m.lastCleanup) < CleanupLatency {
		m.mu.Unlock()
		return
	}
	m.lastCleanup = now
	m.mu.Unlock()

	m.store.RemoveIf(func(t Target) bool {
		return now.Sub(t.Seen()) > m.cfg.DeleteTargetAfterTimeout
	})
}

// pendingWarning is a warning computed during dispatch but not yet offered
// to the warning ledger — emission is deferred until the manager mutex has
// been released.
type pendingWarning struct {
	id, text string
	mmsi     uint32
}

// pendingMessage is an onMessage callback computed during dispatch, for the
// same reason.
type pendingMessage struct {
	received               bool
	source, destination    uint32
	text                   string
}

// dispatchResult carries whatever dispatch decided needs to happen once
// the manager mutex is released.
type dispatchResult struct {
	warning *pendingWarning
	message *pendingMessage
}

func (m *Manager) dispatch(packet goais.Packet, now time.Time) (dispatchResult, error) {
	var res dispatchResult

	switch p := packet.(type) {
	case goais.PositionReport:
		ship := Mutate(m.store, p.UserID, NewShip, &now, func(s *Ship) {
			positionReportClassAToShip(p, s)
			s.Transceiver = TransceiverClassA
		})
		res.warning = m.checkIsExceptionalTarget(ship, now)

	case goais.ShipStaticData:
		Mutate(m.store, p.UserID, NewShip, &now, func(s *Ship) {
			applyShipStaticData(p, s, now)
		})

	case goais.StaticDataReport:
		Mutate(m.store, p.UserID, NewShip, &now, func(s *Ship) {
			applyStaticDataReport(p, s)
		})

	case goais.StandardClassBPositionReport:
		Mutate(m.store, p.UserID, NewShip, &now, func(s *Ship) {
			s.Position = setPosition(s.Position, float64(p.Latitude), float64(p.Longitude))
			cog, sog := p.Cog, p.Sog
			s.CourseOverGround, s.SpeedOverGround = optionalCourseSpeed(float64(cog), float64(sog))
			s.TrueHeading = optionalHeading(p.TrueHeading)
			s.RateOfTurn = nil
			s.Transceiver = TransceiverClassB
		})

	case goais.ExtendedClassBPositionReport:
		Mutate(m.store, p.UserID, NewShip, &now, func(s *Ship) {
			s.Position = setPosition(s.Position, float64(p.Latitude), float64(p.Longitude))
			s.CourseOverGround, s.SpeedOverGround = optionalCourseSpeed(float64(p.Cog), float64(p.Sog))
			s.TrueHeading = optionalHeading(p.TrueHeading)
			s.RateOfTurn = nil
			s.Transceiver = TransceiverClassB
			s.ShipType = p.Type
			s.DimensionToBow = p.Dimension.A
			s.DimensionToStern = p.Dimension.B
			s.DimensionToPort = uint16(p.Dimension.C)
			s.DimensionToStarboard = uint16(p.Dimension.D)
			name := p.Name
			s.Name = &name
		})

	case goais.BaseStationReport:
		Mutate(m.store, p.UserID, NewBaseStation, &now, func(b *BaseStation) {
			b.Position = setPosition(b.Position, float64(p.Latitude), float64(p.Longitude))
		})

	case goais.StandardSearchAndRescueAircraftReport:
		Mutate(m.store, p.UserID, NewSarAircraft, &now, func(a *SarAircraft) {
			a.Position = setPosition(a.Position, float64(p.Latitude), float64(p.Longitude))
			a.Altitude = p.Altitude
			a.CourseOverGround, a.SpeedOverGround = optionalCourseSpeed(float64(p.Cog), float64(p.Sog))
			a.RateOfTurn = 0
		})

	case goais.AidsToNavigationReport:
		Mutate(m.store, p.UserID, NewAidToNavigation, &now, func(a *AidToNavigation) {
			a.Position = setPosition(a.Position, float64(p.Latitude), float64(p.Longitude))
			name := p.Name + p.NameExtension
			a.Name = &name
			a.NameExtension = p.NameExtension
			a.DimensionToBow = p.Dimension.A
			a.DimensionToStern = p.Dimension.B
			a.DimensionToPort = uint16(p.Dimension.C)
			a.DimensionToStarboard = uint16(p.Dimension.D)
			a.OffPosition = p.OffPosition
			a.Virtual = p.VirtualAtoN
			a.NavigationalAidType = p.Type
		})

	case goais.AddessedSafetyMessage:
		res.message = &pendingMessage{received: true, source: p.UserID, destination: p.DestinationID, text: p.Text}

	case goais.SafetyBroadcastMessage:
		res.message = &pendingMessage{received: true, source: p.UserID, destination: 0, text: p.Text}

	case goais.Interrogation, goais.DataLinkManagementMessage:
		// consumed silently

	default:
		if m.cfg.ThrowOnUnknownMessage {
			return res, newError(UnsupportedMessage, "Manager.dispatch", nil)
		}
	}
	return res, nil
}

// setPosition validates (lat, lon) before replacing existing; an
// out-of-range decoded position leaves a target's last-good fix untouched
// rather than overwriting it with garbage.
func setPosition(existing *geo.Position, lat, lon float64) *geo.Position {
	candidate := geo.Position{Latitude: lat, Longitude: lon}
	if !candidate.Valid() {
		return existing
	}
	return &candidate
}

func optionalCourseSpeed(cog, sog float64) (course, speed *float64) {
	if cog != geo.CourseNa {
		c := cog
		course = &c
	}
	if sog != geo.SpeedNa {
		s := sog
		speed = &s
	}
	return
}

func optionalHeading(h uint16) *uint16 {
	if h == geo.HeadingNa {
		return nil
	}
	v := h
	return &v
}

// positionReportClassAToShip applies a Class A position report to ship, per
// spec.md §4.2's named transform.
func positionReportClassAToShip(p goais.PositionReport, s *Ship) {
	s.Position = setPosition(s.Position, float64(p.Latitude), float64(p.Longitude))
	s.CourseOverGround, s.SpeedOverGround = optionalCourseSpeed(float64(p.Cog), float64(p.Sog))
	s.TrueHeading = optionalHeading(p.TrueHeading)
	s.RateOfTurn = decodeRateOfTurn(int8(p.RateOfTurn))
	s.NavigationStatus = NavigationalStatus(p.NavigationalStatus)
}

// decodeRateOfTurn converts the raw ITU-R M.1371 encoded rate of turn
// (range [-127, 127], sentinel -128) into degrees/minute: v = raw/4.733,
// rot = sign(v)*v².
func decodeRateOfTurn(raw int8) *float64 {
	if raw == -128 {
		return nil
	}
	v := float64(raw) / 4.733
	rot := v * v
	if v < 0 {
		rot = -rot
	}
	return &rot
}

// encodeRateOfTurn is decodeRateOfTurn's inverse, used when originating a
// position report: v = sign(r)*sqrt(|r|), raw = round(v*4.733).
func encodeRateOfTurn(rot *float64) int8 {
	if rot == nil {
		return -128
	}
	r := *rot
	v := sqrtAbs(r)
	raw := v * 4.733
	return int8(roundHalfAwayFromZero(raw))
}

func sqrtAbs(r float64) float64 {
	v := math.Sqrt(math.Abs(r))
	if r < 0 {
		return -v
	}
	return v
}

func roundHalfAwayFromZero(v float64) float64 {
	return math.Round(v)
}

func applyShipStaticData(p goais.ShipStaticData, s *Ship, now time.Time) {
	name := p.Name
	callSign := p.CallSign
	destination := p.Destination
	draught := float64(p.MaximumStaticDraught)
	imo := p.ImoNumber
	s.Name = &name
	s.CallSign = &callSign
	s.Destination = &destination
	s.Draught = &draught
	s.ImoNumber = &imo
	s.ShipType = p.Type
	s.DimensionToBow = p.Dimension.A
	s.DimensionToStern = p.Dimension.B
	s.DimensionToPort = uint16(p.Dimension.C)
	s.DimensionToStarboard = uint16(p.Dimension.D)
	s.EstimatedTimeOfArrival = composeETA(now, uint(p.Eta.Month), uint(p.Eta.Day), uint(p.Eta.Hour), uint(p.Eta.Minute))
}

func applyStaticDataReport(p goais.StaticDataReport, s *Ship) {
	switch p.PartNumber {
	case false:
		name := p.ReportA.Name
		s.Name = &name
	case true:
		callSign := p.ReportB.CallSign
		s.CallSign = &callSign
		s.ShipType = p.ReportB.ShipType
		s.DimensionToBow = p.ReportB.Dimension.A
		s.DimensionToStern = p.ReportB.Dimension.B
		s.DimensionToPort = uint16(p.ReportB.Dimension.C)
		s.DimensionToStarboard = uint16(p.ReportB.Dimension.D)
	}
}

// checkIsExceptionalTarget implements spec.md §4.2's exceptional-target
// detection: SART/EPIRB/MOB devices and active AIS-SART alarms get an
// immediate, deduplicated proximity warning regardless of the alarm loop's
// own CPA/TCPA sweep.
func (m *Manager) checkIsExceptionalTarget(ship *Ship, now time.Time) *pendingWarning {
	if !m.cfg.AutoSendWarnings {
		return nil
	}

	label, exceptional := exceptionalLabel(ship)
	if !exceptional {
		return nil
	}

	own, ok := m.GetOwnShipData(now)
	if !ok || ship.Position == nil || own.Position == nil {
		return nil
	}
	distance, _ := geo.DistanceBearing(*own.Position, *ship.Position)

	text := fmt.Sprintf("%s Target activated: MMSI %s in Position %s! Distance %.0f",
		label, ship.FormatMmsi(), formatLatLon(*ship.Position), distance)
	return &pendingWarning{id: ship.FormatMmsi(), text: text, mmsi: ship.Mmsi}
}

func exceptionalLabel(ship *Ship) (label string, ok bool) {
	if ship.NavigationStatus == NavStatusAisSartIsActive {
		return "AIS SART", true
	}
	switch mmsi.Identify(ship.Mmsi) {
	case mmsi.AisSart:
		return "AIS SART", true
	case mmsi.Epirb:
		return "EPIRB", true
	case mmsi.Mob:
		return "MOB", true
	default:
		return "", false
	}
}

func formatLatLon(p geo.Position) string {
	latHemi, lonHemi := "N", "E"
	lat, lon := p.Latitude, p.Longitude
	if lat < 0 {
		latHemi, lat = "S", -lat
	}
	if lon < 0 {
		lonHemi, lon = "W", -lon
	}
	return fmt.Sprintf("%.5f %s %.5f %s", lat, latHemi, lon, lonHemi)
}

// GetOwnShipData constructs the own ship's current Ship view from the
// position provider. ok is false if there is no position at all, or the
// last fix is older than MaximumPositionAge — callers should still use the
// returned ship's fields (which may carry a stale or sentinel position) for
// display purposes.
func (m *Manager) GetOwnShipData(now time.Time) (Ship, bool) {
	ship := Ship{
		base: base{Mmsi: m.cfg.OwnMmsi, Name: &m.cfg.OwnShipName},
		DimensionToBow:       m.cfg.DimensionToBow,
		DimensionToStern:     m.cfg.DimensionToStern,
		DimensionToPort:      m.cfg.DimensionToPort,
		DimensionToStarboard: m.cfg.DimensionToStarboard,
	}

	if m.positions == nil {
		return ship, false
	}
	fix, has := m.positions.TryGetCurrentPosition(now)
	if !has {
		return ship, false
	}

	ship.Position = fix.Position
	ship.CourseOverGround = fix.CourseOverGround
	ship.SpeedOverGround = fix.SpeedOverGround
	ship.TrueHeading = fix.TrueHeading
	ship.LastSeen = fix.MessageTime

	if fix.Position == nil {
		return ship, false
	}
	if fix.MessageTime.Add(m.cfg.TrackEstimationParameters.MaximumPositionAge).Before(now) {
		return ship, false
	}
	return ship, true
}

// SendWarningMessage offers (messageID, text) to the warning ledger; if it
// was not suppressed, it broadcasts text on sourceMmsi's behalf and returns
// true.
func (m *Manager) SendWarningMessage(messageID string, sourceMmsi uint32, text string, now time.Time) bool {
	if !m.warnings.Offer(messageID, text, now) {
		return false
	}
	m.SendBroadcastMessage(sourceMmsi, text)
	return true
}

// SendBroadcastMessage originates a Safety Related Broadcast from sourceMmsi
// and fires it through both the message callback and the outbound sentence
// event.
func (m *Manager) SendBroadcastMessage(sourceMmsi uint32, text string) {
	m.emitMessage(false, sourceMmsi, 0, text)

	packet := goais.SafetyBroadcastMessage{
		Header: goais.Header{MessageID: 14, UserID: sourceMmsi},
		Text:   text,
	}
	sentences, err := m.codec.Encode(packet, m.generatedSentencesID())
	if err != nil {
		return
	}
	for _, s := range sentences {
		m.emitOutbound(s)
	}
}

func (m *Manager) generatedSentencesID() codec.TalkerID {
	if m.cfg.GeneratedSentencesID == "" {
		return codec.TalkerVDO
	}
	return m.cfg.GeneratedSentencesID
}

// SendShipPositionReport encodes ship as an outbound Class A position
// report. Per spec.md §7, encoding to anything other than exactly one
// sentence is an EncodeFailure; only Class A (the only originable class)
// is supported, anything else is UnsupportedEncoding.
func (m *Manager) SendShipPositionReport(ship Ship) error {
	if ship.Transceiver != TransceiverClassA {
		return newError(UnsupportedEncoding, "Manager.SendShipPositionReport", nil)
	}

	packet := goais.PositionReport{
		Header:           goais.Header{MessageID: 1, UserID: ship.Mmsi},
		RateOfTurn:       int16(encodeRateOfTurn(ship.RateOfTurn)),
		NavigationalStatus: uint8(ship.NavigationStatus),
	}
	if ship.Position != nil {
		packet.Latitude = goais.FieldLatLonFine(ship.Position.Latitude)
		packet.Longitude = goais.FieldLatLonFine(ship.Position.Longitude)
	} else {
		packet.Latitude, packet.Longitude = geo.LatitudeNa, geo.LongitudeNa
	}
	packet.Cog = geo.CourseNa
	if ship.CourseOverGround != nil {
		packet.Cog = goais.Field10(*ship.CourseOverGround)
	}
	packet.Sog = geo.SpeedNa
	if ship.SpeedOverGround != nil {
		packet.Sog = goais.Field10(*ship.SpeedOverGround)
	}
	packet.TrueHeading = geo.HeadingNa
	if ship.TrueHeading != nil {
		packet.TrueHeading = *ship.TrueHeading
	}

	sentences, err := m.codec.Encode(packet, m.generatedSentencesID())
	if err != nil {
		return wrapError(EncodeFailure, "Manager.SendShipPositionReport", err)
	}
	if len(sentences) != 1 {
		return newError(EncodeFailure, "Manager.SendShipPositionReport", nil)
	}
	m.emitOutbound(sentences[0])
	return nil
}

// EnableAisAlarms starts the alarm surveillance loop (if not already
// running), optionally replacing the track estimation parameters it uses.
func (m *Manager) EnableAisAlarms(params *TrackEstimationParameters) {
	if params != nil {
		m.mu.Lock()
		m.cfg.TrackEstimationParameters = *params
		m.mu.Unlock()
	}
	m.alarms.enable()
}

// DisableAisAlarms signals the alarm worker to stop and joins it.
func (m *Manager) DisableAisAlarms() {
	m.alarms.disable()
}
