package config

import (
	"context"
	"fmt"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/fpawel/b1500/internal/pkg/cfgfile"
	"github.com/fpawel/b1500/internal/transport"
	"github.com/fpawel/comm"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config describes the mainframe and the modules plugged into it.
type Config struct {
	Mainframe   Mainframe `yaml:"mainframe"`
	LogCommands bool      `yaml:"log_commands"`
	Journal     string    `yaml:"journal"` // sqlite file of the command journal, empty to disable
	Modules     []Module  `yaml:"modules"`
}

type Mainframe struct {
	Name               string        `yaml:"name"`
	Addr               string        `yaml:"addr"`
	TimeoutGetResponse time.Duration `yaml:"timeout_get_response"` // zero means the default
	TimeoutEndResponse time.Duration `yaml:"timeout_end_response"` // zero means the default
	Pause              time.Duration `yaml:"pause,omitempty"`
}

type Module struct {
	Slot  int    `yaml:"slot"`
	Model string `yaml:"model"`
	Name  string `yaml:"name,omitempty"`
	// AsuPresent is kept as decoded so that values which are not booleans
	// reach the module and get rejected there.
	AsuPresent interface{} `yaml:"asu_present,omitempty"`
	// MeasureRange is set on the instrument by Apply.
	MeasureRange *b1500.IMeasRange `yaml:"measure_range,omitempty"`
	// OutputRange is used by sources given without a range.
	OutputRange *b1500.IOutputRange `yaml:"output_range,omitempty"`
}

const (
	DefaultTimeoutGetResponse = 10 * time.Second
	DefaultTimeoutEndResponse = 50 * time.Millisecond
)

const Filename = "b1500.yaml"

var ErrConfig = merry.New("invalid configuration")

func Default() Config {
	return Config{
		Mainframe: Mainframe{
			Name:               "b1500",
			Addr:               fmt.Sprintf("192.168.0.10:%d", transport.DefaultPort),
			TimeoutGetResponse: DefaultTimeoutGetResponse,
			TimeoutEndResponse: DefaultTimeoutEndResponse,
		},
		Journal: "b1500.sqlite",
		Modules: []Module{
			{
				Slot:       1,
				Model:      "B1511B",
				AsuPresent: false,
			},
		},
	}
}

// Load reads the configuration from filename, relative names are resolved
// against the executable directory.
func Load(filename string) (Config, error) {
	var c Config
	if err := file(filename).Get(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, merry.Prepend(err, filename)
	}
	return c, nil
}

// LoadOrDefault returns the default configuration when filename does not exist.
func LoadOrDefault(filename string) (Config, error) {
	f := file(filename)
	if !f.Exists() {
		return Default(), nil
	}
	return Load(filename)
}

func Save(filename string, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return file(filename).Set(c)
}

// CommConfig returns the exchange settings of the mainframe connection.
// Queries are never repeated.
func (m Mainframe) CommConfig() comm.Config {
	c := comm.Config{
		TimeoutGetResponse: m.TimeoutGetResponse,
		TimeoutEndResponse: m.TimeoutEndResponse,
		MaxAttemptsRead:    1,
		Pause:              m.Pause,
	}
	if c.TimeoutGetResponse == 0 {
		c.TimeoutGetResponse = DefaultTimeoutGetResponse
	}
	if c.TimeoutEndResponse == 0 {
		c.TimeoutEndResponse = DefaultTimeoutEndResponse
	}
	return c
}

// JournalFilename resolves the journal file the same way as the setup file.
func (c Config) JournalFilename() string {
	if c.Journal == "" || c.Journal == ":memory:" {
		return c.Journal
	}
	return cfgfile.Filename(c.Journal)
}

func file(filename string) *cfgfile.F {
	if filename == "" {
		filename = Filename
	}
	return cfgfile.New(filename, yaml.Marshal, yaml.Unmarshal)
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var mulErr *multierror.Error
	add := func(format string, args ...interface{}) {
		mulErr = multierror.Append(mulErr, merry.Appendf(ErrConfig, format, args...))
	}
	if c.Mainframe.Addr == "" {
		add("mainframe.addr must be set")
	}
	for _, x := range []struct {
		key string
		d   time.Duration
	}{
		{"timeout_get_response", c.Mainframe.TimeoutGetResponse},
		{"timeout_end_response", c.Mainframe.TimeoutEndResponse},
		{"pause", c.Mainframe.Pause},
	} {
		if x.d < 0 {
			add("mainframe.%s=%v: must not be negative", x.key, x.d)
		}
	}
	slots := make(map[int]struct{})
	for i, m := range c.Modules {
		if m.Slot < b1500.MinSlot || m.Slot > b1500.MaxSlot {
			add("modules[%d]: slot=%d: expected %d..%d", i, m.Slot, b1500.MinSlot, b1500.MaxSlot)
		}
		if _, f := slots[m.Slot]; f {
			add("modules[%d]: slot %d is used twice", i, m.Slot)
		}
		slots[m.Slot] = struct{}{}
		switch m.Model {
		case "B1511B":
			if _, ok := m.AsuPresent.(bool); m.AsuPresent != nil && !ok {
				mulErr = multierror.Append(mulErr,
					merry.Appendf(b1500.ErrNotBool, "modules[%d]: asu_present=%v", i, m.AsuPresent))
			}
		case "B1517A":
			if m.AsuPresent != nil {
				add("modules[%d]: asu_present: %s has no ASU input", i, m.Model)
			}
		default:
			mulErr = multierror.Append(mulErr, merry.Appendf(b1500.ErrUnknownModel, "modules[%d]: %q", i, m.Model))
		}
	}
	return mulErr.ErrorOrNil()
}

// Build creates the mainframe and its modules. The configured ranges are
// checked against the ranges valid for each module.
func (c Config) Build(instr b1500.Instrument, opts ...b1500.Option) (*b1500.KeysightB1500, error) {
	mf := b1500.NewKeysightB1500(c.Mainframe.Name, instr, opts...)
	for _, m := range c.Modules {
		smu, err := b1500.NewModule(mf, m.Model, m.Name, m.Slot)
		if err != nil {
			return nil, err
		}
		if asu, ok := smu.(b1500.AsuModule); ok && m.AsuPresent != nil {
			if err := asu.SetAsuPresentValue(m.AsuPresent); err != nil {
				return nil, err
			}
		}
		if m.MeasureRange != nil {
			if err := smu.CheckIMeasureRange(*m.MeasureRange); err != nil {
				return nil, err
			}
		}
		if m.OutputRange != nil {
			if err := smu.SetIOutputRange(*m.OutputRange); err != nil {
				return nil, err
			}
		}
		if err := mf.Add(smu); err != nil {
			return nil, err
		}
	}
	return mf, nil
}

// Apply sends the configured measurement ranges to the modules of mf.
func (c Config) Apply(ctx context.Context, mf *b1500.KeysightB1500) error {
	for _, m := range c.Modules {
		if m.MeasureRange == nil {
			continue
		}
		smu, err := mf.SMU(m.Slot)
		if err != nil {
			return err
		}
		if err := smu.SetIMeasureRange(ctx, *m.MeasureRange); err != nil {
			return err
		}
	}
	return nil
}
