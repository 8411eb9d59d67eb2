// Package config loads aistrack's runtime configuration: a YAML file for
// the durable settings, with pflag command-line switches layered on top for
// the things an operator reasonably wants to override per invocation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sealane/aistrack/ais"
	"github.com/sealane/aistrack/ais/codec"
)

// Config is the full set of knobs aisreplay (and any other host binary)
// needs to construct an ais.Manager and a replay.Source.
type Config struct {
	OwnMmsi     uint32 `yaml:"own_mmsi" mapstructure:"own_mmsi"`
	OwnShipName string `yaml:"own_ship_name" mapstructure:"own_ship_name"`

	DimensionToBow       uint16 `yaml:"dimension_to_bow" mapstructure:"dimension_to_bow"`
	DimensionToStern     uint16 `yaml:"dimension_to_stern" mapstructure:"dimension_to_stern"`
	DimensionToPort      uint16 `yaml:"dimension_to_port" mapstructure:"dimension_to_port"`
	DimensionToStarboard uint16 `yaml:"dimension_to_starboard" mapstructure:"dimension_to_starboard"`

	AutoSendWarnings         bool          `yaml:"auto_send_warnings" mapstructure:"auto_send_warnings"`
	DeleteTargetAfterTimeout time.Duration `yaml:"delete_target_after_timeout" mapstructure:"delete_target_after_timeout"`
	ThrowOnUnknownMessage    bool          `yaml:"throw_on_unknown_message" mapstructure:"throw_on_unknown_message"`
	GeneratedSentencesID     string        `yaml:"generated_sentences_id" mapstructure:"generated_sentences_id"`

	MaximumPositionAge     time.Duration `yaml:"maximum_position_age" mapstructure:"maximum_position_age"`
	TargetLostTimeout      time.Duration `yaml:"target_lost_timeout" mapstructure:"target_lost_timeout"`
	WarningDistanceMetres  float64       `yaml:"warning_distance_metres" mapstructure:"warning_distance_metres"`
	WarningTime            time.Duration `yaml:"warning_time" mapstructure:"warning_time"`
	AisSafetyCheckInterval time.Duration `yaml:"ais_safety_check_interval" mapstructure:"ais_safety_check_interval"`
	WarnIfGnssMissing      bool          `yaml:"warn_if_gnss_missing" mapstructure:"warn_if_gnss_missing"`

	Realtime bool     `yaml:"realtime" mapstructure:"realtime"`
	Inputs   []string `yaml:"inputs" mapstructure:"inputs"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" mapstructure:"log_file"`
	Trace    string `yaml:"trace" mapstructure:"trace"`
}

// Default mirrors ais.DefaultConfig / ais.DefaultTrackEstimationParameters so
// a fresh Config without a file is still usable.
func Default() Config {
	dc := ais.DefaultConfig(0, "")
	tp := dc.TrackEstimationParameters
	return Config{
		OwnMmsi:                  dc.OwnMmsi,
		OwnShipName:              dc.OwnShipName,
		AutoSendWarnings:         dc.AutoSendWarnings,
		DeleteTargetAfterTimeout: dc.DeleteTargetAfterTimeout,
		ThrowOnUnknownMessage:    dc.ThrowOnUnknownMessage,
		GeneratedSentencesID:     string(dc.GeneratedSentencesID),
		MaximumPositionAge:       tp.MaximumPositionAge,
		TargetLostTimeout:        tp.TargetLostTimeout,
		WarningDistanceMetres:    tp.WarningDistance,
		WarningTime:              tp.WarningTime,
		AisSafetyCheckInterval:   tp.AisSafetyCheckInterval,
		WarnIfGnssMissing:        tp.WarnIfGnssMissing,
		LogLevel:                 "info",
	}
}

// Load reads a YAML config file, falling back to Default() field-by-field
// for anything the file omits (YAML unmarshal into a pre-populated struct
// only overwrites the keys present).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}

// FromMap decodes a generic map (e.g. a parsed JSON body, or a sub-section
// of a larger config document) into a Config, for hosts that assemble their
// settings from something other than a standalone YAML file.
func FromMap(m map[string]interface{}) (Config, error) {
	cfg := Default()
	if err := mapstructure.Decode(m, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config map: %w", err)
	}
	return cfg, nil
}

// BindFlags registers pflag switches that override cfg's fields, mirroring
// the flag-then-file precedence the corpus uses for its standalone tools.
// Call pflag.Parse() after BindFlags, then ApplyFlags to fold the parsed
// values back into cfg.
type Flags struct {
	ConfigFile *string
	OwnMmsi    *uint32
	OwnName    *string
	Realtime   *bool
	Inputs     *[]string
	LogLevel   *string
	LogFile    *string
	Trace      *string
}

func BindFlags() *Flags {
	return &Flags{
		ConfigFile: pflag.StringP("config-file", "c", "", "YAML configuration file"),
		OwnMmsi:    pflag.Uint32P("own-mmsi", "m", 0, "This vessel's own MMSI"),
		OwnName:    pflag.StringP("own-name", "n", "", "This vessel's own ship name"),
		Realtime:   pflag.BoolP("realtime", "r", false, "Pace replay to the original recording cadence"),
		Inputs:     pflag.StringArrayP("input", "i", nil, "Input log file (repeatable)"),
		LogLevel:   pflag.StringP("log", "l", "", "Logging level"),
		LogFile:    pflag.StringP("log-file", "L", "", "File to write logs to"),
		Trace:      pflag.StringP("trace", "t", "", "Comma-separated list of tracers to enable"),
	}
}

// ApplyFlags overlays any explicitly-set flags onto cfg.
func (f *Flags) ApplyFlags(cfg Config) Config {
	if f.OwnMmsi != nil && *f.OwnMmsi != 0 {
		cfg.OwnMmsi = *f.OwnMmsi
	}
	if f.OwnName != nil && *f.OwnName != "" {
		cfg.OwnShipName = *f.OwnName
	}
	if f.Realtime != nil && *f.Realtime {
		cfg.Realtime = true
	}
	if f.Inputs != nil && len(*f.Inputs) > 0 {
		cfg.Inputs = *f.Inputs
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.LogLevel = *f.LogLevel
	}
	if f.LogFile != nil && *f.LogFile != "" {
		cfg.LogFile = *f.LogFile
	}
	if f.Trace != nil && *f.Trace != "" {
		cfg.Trace = *f.Trace
	}
	return cfg
}

// ManagerConfig builds an ais.Config from the loaded settings.
func (c Config) ManagerConfig() ais.Config {
	mc := ais.DefaultConfig(c.OwnMmsi, c.OwnShipName)
	mc.DimensionToBow = c.DimensionToBow
	mc.DimensionToStern = c.DimensionToStern
	mc.DimensionToPort = c.DimensionToPort
	mc.DimensionToStarboard = c.DimensionToStarboard
	mc.AutoSendWarnings = c.AutoSendWarnings
	mc.DeleteTargetAfterTimeout = c.DeleteTargetAfterTimeout
	mc.ThrowOnUnknownMessage = c.ThrowOnUnknownMessage
	if c.GeneratedSentencesID != "" {
		mc.GeneratedSentencesID = codec.TalkerID(c.GeneratedSentencesID)
	}
	if c.MaximumPositionAge > 0 {
		mc.TrackEstimationParameters.MaximumPositionAge = c.MaximumPositionAge
	}
	if c.TargetLostTimeout > 0 {
		mc.TrackEstimationParameters.TargetLostTimeout = c.TargetLostTimeout
	}
	if c.WarningDistanceMetres > 0 {
		mc.TrackEstimationParameters.WarningDistance = c.WarningDistanceMetres
	}
	if c.WarningTime > 0 {
		mc.TrackEstimationParameters.WarningTime = c.WarningTime
	}
	if c.AisSafetyCheckInterval > 0 {
		mc.TrackEstimationParameters.AisSafetyCheckInterval = c.AisSafetyCheckInterval
	}
	mc.TrackEstimationParameters.WarnIfGnssMissing = c.WarnIfGnssMissing
	return mc
}
