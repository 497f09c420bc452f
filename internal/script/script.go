// Package script runs Lua scripts against a B1500 mainframe.
package script

import (
	"context"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/powerman/structlog"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"
)

// Import is the "go" global of the scripts.
type Import struct {
	l   *lua.LState
	mf  *b1500.KeysightB1500
	log *structlog.Logger
}

type ModuleInfo struct {
	Slot       int
	Model      string
	Name       string
	AsuPresent bool
}

// Source is the argument of SourceCurrent, e.g. {range="MIN_1uA", current=1e-6, compliance=2}.
// Without a range the output range of the module is used.
type Source struct {
	Range      string
	Current    float64
	Compliance float64
}

func RunFile(ctx context.Context, mf *b1500.KeysightB1500, filename string) error {
	return run(ctx, mf, func(l *lua.LState) error {
		return l.DoFile(filename)
	})
}

func RunString(ctx context.Context, mf *b1500.KeysightB1500, source string) error {
	return run(ctx, mf, func(l *lua.LState) error {
		return l.DoString(source)
	})
}

func run(ctx context.Context, mf *b1500.KeysightB1500, do func(*lua.LState) error) error {
	l := lua.NewState()
	defer l.Close()
	l.SetContext(ctx)
	imp := &Import{
		l:   l,
		mf:  mf,
		log: structlog.New(structlog.KeyUnit, "lua"),
	}
	l.SetGlobal("go", luar.New(l, imp))
	if err := do(l); err != nil {
		if ctx.Err() != nil {
			return merry.Wrap(ctx.Err())
		}
		return merry.Wrap(err)
	}
	return nil
}

func (x *Import) Info(s string) {
	x.log.Info(s)
}

func (x *Import) Modules() *lua.LTable {
	t := x.l.NewTable()
	for _, m := range x.mf.Modules() {
		inf := ModuleInfo{
			Slot:  m.Slot(),
			Model: m.Model(),
			Name:  m.Name(),
		}
		if asu, ok := m.(b1500.AsuModule); ok {
			inf.AsuPresent = asu.AsuPresent()
		}
		t.Append(luar.New(x.l, &inf))
	}
	return t
}

// SetAsuPresent takes any Lua value, anything but a boolean raises an error.
func (x *Import) SetAsuPresent(slot int, v lua.LValue) {
	asu := x.asuModule(slot)
	var val interface{} = v
	if b, ok := v.(lua.LBool); ok {
		val = bool(b)
	}
	x.check(asu.SetAsuPresentValue(val))
}

func (x *Import) AsuPresent(slot int) bool {
	return x.asuModule(slot).AsuPresent()
}

func (x *Import) ValidMeasureRanges(slot int) []string {
	return b1500.IMeasRangeNames(x.smu(slot).ValidIMeasureRanges())
}

func (x *Import) ValidOutputRanges(slot int) []string {
	return b1500.IOutputRangeNames(x.smu(slot).ValidIOutputRanges())
}

func (x *Import) SetMeasureRange(slot int, name string) {
	r, err := b1500.ParseIMeasRange(name)
	x.check(err)
	x.check(x.smu(slot).SetIMeasureRange(x.l.Context(), r))
}

func (x *Import) SourceCurrent(slot int, v lua.LValue) {
	t, ok := v.(*lua.LTable)
	if !ok {
		x.l.RaiseError("source must be a table, got %s", v.Type())
	}
	var src Source
	x.check(gluamapper.Map(t, &src))
	smu := x.smu(slot)
	r := smu.IOutputRange()
	if src.Range != "" {
		var err error
		r, err = b1500.ParseIOutputRange(src.Range)
		x.check(err)
	}
	x.check(smu.SourceCurrent(x.l.Context(), r, src.Current, src.Compliance))
}

func (x *Import) Enable(slot int) {
	x.check(x.smu(slot).Enable(x.l.Context()))
}

func (x *Import) Disable(slot int) {
	x.check(x.smu(slot).Disable(x.l.Context()))
}

func (x *Import) smu(slot int) b1500.SMU {
	m, err := x.mf.SMU(slot)
	x.check(err)
	return m
}

func (x *Import) asuModule(slot int) b1500.AsuModule {
	m := x.smu(slot)
	asu, ok := m.(b1500.AsuModule)
	if !ok {
		x.l.RaiseError("slot %d: %s has no ASU input", slot, m.Model())
	}
	return asu
}

func (x *Import) check(err error) {
	if err != nil {
		x.l.RaiseError("%s", err)
	}
}
