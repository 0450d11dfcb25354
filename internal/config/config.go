// Package config loads the touch-switch YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ggtrigg/touch-switch/internal/fixture"
	"github.com/ggtrigg/touch-switch/internal/logic"
	"github.com/ggtrigg/touch-switch/internal/mqtt"
	"github.com/ggtrigg/touch-switch/internal/sampler"
	"github.com/ggtrigg/touch-switch/internal/serialport"
)

// Sampler kinds.
const (
	SamplerSerial = "serial"
	SamplerRC     = "rc"
	SamplerStdin  = "stdin"
)

// Fixture kinds.
const (
	FixtureAPA102 = "apa102"
	FixtureMQTT   = "mqtt"
)

// Config is the complete daemon configuration.
type Config struct {
	Tuning  logic.Tuning `yaml:"tuning"`
	Loop    Loop         `yaml:"loop"`
	Sampler Sampler      `yaml:"sampler"`
	Fixture Fixture      `yaml:"fixture"`
	MQTT    MQTT         `yaml:"mqtt"`
	HTTP    HTTP         `yaml:"http"`
}

// Loop sets the driving loop intervals. YAML values are Go duration
// strings such as "500us" or "15m".
type Loop struct {
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables heartbeats
	Refresh   time.Duration `yaml:"refresh"`   // 0 disables periodic re-sends
}

// Sampler selects and configures the raw sample source.
type Sampler struct {
	Kind   string                 `yaml:"kind"`
	Device string                 `yaml:"device"`
	Port   serialport.PortOptions `yaml:"port"`
	Chip   string                 `yaml:"chip"`
	Line   int                    `yaml:"line"`
	Queue  int                    `yaml:"queue"`
}

// Fixture selects the light outputs.
type Fixture struct {
	Kinds  []string               `yaml:"kinds"`
	Curve  string                 `yaml:"curve"`
	Device string                 `yaml:"device"`
	Port   serialport.PortOptions `yaml:"port"`
}

// MQTT holds broker settings.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Backlog  int    `yaml:"backlog"`
}

// HTTP holds the status server settings. An empty address disables it.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	rc := sampler.DefaultRCConfig()
	return Config{
		Tuning: logic.DefaultTuning(),
		Loop: Loop{
			Poll:      time.Millisecond,
			Heartbeat: 15 * time.Minute,
			Refresh:   time.Second,
		},
		Sampler: Sampler{
			Kind:   SamplerSerial,
			Device: "/dev/ttyACM0",
			Chip:   rc.Chip,
			Line:   rc.Line,
			Queue:  sampler.DefaultQueueSize,
		},
		Fixture: Fixture{
			Kinds:  []string{FixtureMQTT},
			Curve:  string(fixture.CurveQuad),
			Device: "/dev/ttyUSB0",
		},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "touch-switch",
			Backlog:  mqtt.DefaultBacklog,
		},
		HTTP: HTTP{Addr: ":8080"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.SetStrict(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	var errs []error

	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Loop.Poll <= 0 {
		errs = append(errs, fmt.Errorf("loop.poll must be positive, got %v", c.Loop.Poll))
	}
	if c.Loop.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("loop.heartbeat must not be negative, got %v", c.Loop.Heartbeat))
	}
	if c.Loop.Refresh < 0 {
		errs = append(errs, fmt.Errorf("loop.refresh must not be negative, got %v", c.Loop.Refresh))
	}

	switch c.Sampler.Kind {
	case SamplerSerial:
		if c.Sampler.Device == "" {
			errs = append(errs, errors.New("sampler.device is required for the serial sampler"))
		}
		if _, err := c.Sampler.Port.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("sampler.port: %w", err))
		}
	case SamplerRC:
		if c.Sampler.Chip == "" {
			errs = append(errs, errors.New("sampler.chip is required for the rc sampler"))
		}
		if c.Sampler.Line < 0 {
			errs = append(errs, fmt.Errorf("sampler.line must not be negative, got %d", c.Sampler.Line))
		}
	case SamplerStdin:
	default:
		errs = append(errs, fmt.Errorf("unknown sampler.kind %q", c.Sampler.Kind))
	}
	if c.Sampler.Queue <= 0 {
		errs = append(errs, fmt.Errorf("sampler.queue must be positive, got %d", c.Sampler.Queue))
	}

	if _, err := fixture.ParseCurve(c.Fixture.Curve); err != nil {
		errs = append(errs, fmt.Errorf("fixture.curve: %w", err))
	}
	for _, k := range c.Fixture.Kinds {
		if k != FixtureAPA102 && k != FixtureMQTT {
			errs = append(errs, fmt.Errorf("unknown fixture kind %q", k))
		}
	}
	if c.Fixture.Has(FixtureAPA102) {
		if c.Fixture.Device == "" {
			errs = append(errs, errors.New("fixture.device is required for the apa102 fixture"))
		}
		if _, err := c.Fixture.Port.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("fixture.port: %w", err))
		}
	}

	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}

	return errors.Join(errs...)
}

// Has reports whether kind is one of the configured fixtures.
func (f Fixture) Has(kind string) bool {
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// RC returns the gpio sampler settings.
func (s Sampler) RC() sampler.RCConfig {
	rc := sampler.DefaultRCConfig()
	rc.Chip = s.Chip
	rc.Line = s.Line
	rc.Queue = s.Queue
	return rc
}

// Publisher returns the broker settings for the MQTT publisher.
func (m MQTT) Publisher() mqtt.Config {
	return mqtt.Config{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		Backlog:  m.Backlog,
	}
}
