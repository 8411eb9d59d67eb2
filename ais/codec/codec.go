// Package codec adapts github.com/BertoldVdb/go-ais (and its aisnmea
// sentence layer) to the narrow decode/encode surface the AIS manager
// needs: turn one NMEA sentence into a decoded AIS message, and turn a
// message we built ourselves into one or more outbound sentences.
package codec

import (
	"github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"
)

// TalkerID selects the NMEA talker id used for sentences this codec
// produces: VDM for a message heard over the air and re-encoded, VDO for a
// message this station originated.
type TalkerID string

const (
	TalkerVDM TalkerID = "VDM"
	TalkerVDO TalkerID = "VDO"
)

// Codec wraps a go-ais bit-level codec and its NMEA sentence framer.
type Codec struct {
	nmea *aisnmea.NMEACodec
}

// New constructs a codec with go-ais's strict decoding and strict encoding
// both turned off; this core always runs non-strict, matching its own
// InvalidField recovery policy.
func New() *Codec {
	return &Codec{nmea: aisnmea.NMEACodecNew(ais.CodecNew(false, false))}
}

// Decode parses a single NMEA sentence. It returns ok=false whenever the
// sentence is not AIS at all, or is one fragment of a still-incomplete
// multi-part message — both are routine, not decode errors.
func (c *Codec) Decode(sentence string) (packet ais.Packet, ok bool, err error) {
	vdm, err := c.nmea.ParseSentence(sentence)
	if err != nil {
		return nil, false, err
	}
	if vdm == nil || vdm.Packet == nil {
		return nil, false, nil
	}
	return vdm.Packet, true, nil
}

// Encode renders packet as one or more outbound NMEA sentences tagged with
// talker.
func (c *Codec) Encode(packet ais.Packet, talker TalkerID) ([]string, error) {
	sentences := c.nmea.EncodeSentence(aisnmea.VdmPacket{
		Packet:      packet,
		TalkerID:    "AI",
		MessageType: string(talker),
	})
	return sentences, nil
}
