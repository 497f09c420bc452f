package b1500

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
)

// Instrument is the command channel to the mainframe.
type Instrument interface {
	Write(ctx context.Context, cmd string) error
	Ask(ctx context.Context, cmd string) (string, error)
}

// Entry describes one command exchanged with the mainframe.
type Entry struct {
	Instrument string
	Command    string
	Reply      string
	Error      string
	CreatedAt  time.Time
}

// Recorder keeps a history of issued commands.
type Recorder interface {
	Record(Entry) error
}

// Module is a plug-in module installed in one of the mainframe slots.
type Module interface {
	Name() string
	Model() string
	Slot() int
	Channel() int
}

var (
	ErrSlotTaken = merry.New("slot is already taken")
	ErrNoModule  = merry.New("no module in slot")
)

// KeysightB1500 is the B1500 semiconductor parameter analyzer mainframe.
type KeysightB1500 struct {
	name    string
	instr   Instrument
	rec     Recorder
	log     *structlog.Logger
	mu      sync.Mutex
	modules map[int]Module
}

type Option func(*KeysightB1500)

// WithRecorder makes the mainframe pass every exchanged command to rec.
func WithRecorder(rec Recorder) Option {
	return func(x *KeysightB1500) {
		x.rec = rec
	}
}

func NewKeysightB1500(name string, instr Instrument, opts ...Option) *KeysightB1500 {
	if name == "" {
		name = "b1500"
	}
	x := &KeysightB1500{
		name:    name,
		instr:   instr,
		log:     structlog.New(structlog.KeyUnit, name),
		modules: make(map[int]Module),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *KeysightB1500) Name() string {
	return x.name
}

func (x *KeysightB1500) Add(m Module) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if y, f := x.modules[m.Slot()]; f {
		return merry.Appendf(ErrSlotTaken, "slot %d: %s", m.Slot(), y.Name())
	}
	x.modules[m.Slot()] = m
	x.log.Debug("module added", "slot", m.Slot(), "model", m.Model(), "name", m.Name())
	return nil
}

func (x *KeysightB1500) Module(slot int) (Module, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	m, f := x.modules[slot]
	if !f {
		return nil, merry.Appendf(ErrNoModule, "slot %d", slot)
	}
	return m, nil
}

// SMU returns the source/monitor unit installed in slot.
func (x *KeysightB1500) SMU(slot int) (SMU, error) {
	m, err := x.Module(slot)
	if err != nil {
		return nil, err
	}
	smu, ok := m.(SMU)
	if !ok {
		return nil, merry.Appendf(ErrNoModule, "slot %d: %s is not an SMU", slot, m.Model())
	}
	return smu, nil
}

// Modules lists installed modules sorted by slot.
func (x *KeysightB1500) Modules() []Module {
	x.mu.Lock()
	defer x.mu.Unlock()
	xs := make([]Module, 0, len(x.modules))
	for _, m := range x.modules {
		xs = append(xs, m)
	}
	sort.Slice(xs, func(i, j int) bool {
		return xs[i].Slot() < xs[j].Slot()
	})
	return xs
}

func (x *KeysightB1500) Write(ctx context.Context, cmd string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	err := x.instr.Write(ctx, cmd)
	x.record(cmd, "", err)
	if err != nil {
		return merry.Prependf(err, "%s: %s", x.name, cmd)
	}
	x.log.Debug("write", "cmd", cmd)
	return nil
}

func (x *KeysightB1500) Ask(ctx context.Context, cmd string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	reply, err := x.instr.Ask(ctx, cmd)
	x.record(cmd, reply, err)
	if err != nil {
		return "", merry.Prependf(err, "%s: %s", x.name, cmd)
	}
	x.log.Debug("ask", "cmd", cmd, "reply", reply)
	return reply, nil
}

func (x *KeysightB1500) Reset(ctx context.Context) error {
	return x.Write(ctx, "*RST")
}

func (x *KeysightB1500) IDN(ctx context.Context) (string, error) {
	return x.Ask(ctx, "*IDN?")
}

func (x *KeysightB1500) record(cmd, reply string, err error) {
	if x.rec == nil {
		return
	}
	ent := Entry{
		Instrument: x.name,
		Command:    cmd,
		Reply:      reply,
		CreatedAt:  time.Now(),
	}
	if err != nil {
		ent.Error = err.Error()
	}
	if err := x.rec.Record(ent); err != nil {
		x.log.PrintErr("journal", "cmd", cmd, "err", err)
	}
}
