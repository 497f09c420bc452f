package b1500

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ansel1/merry"
)

// SMU is a source/monitor unit module.
type SMU interface {
	Module
	ValidIMeasureRanges() []IMeasRange
	ValidIOutputRanges() []IOutputRange
	CheckIMeasureRange(IMeasRange) error
	CheckIOutputRange(IOutputRange) error
	SetIMeasureRange(ctx context.Context, r IMeasRange) error
	IMeasureRange() IMeasRange
	SetIOutputRange(IOutputRange) error
	IOutputRange() IOutputRange
	SourceCurrent(ctx context.Context, r IOutputRange, current, compliance float64) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

const (
	MinSlot = 1
	MaxSlot = 10
)

var (
	ErrSlot          = merry.New("slot number out of range")
	ErrRangeNotValid = merry.New("range is not valid for module")
	ErrUnknownModel  = merry.New("unknown module model")
)

var (
	b1517aIMeasureRanges = []IMeasRange{
		IMeasAuto,
		IMeasMin1pA, IMeasMin10pA, IMeasMin100pA,
		IMeasMin1nA, IMeasMin10nA, IMeasMin100nA,
		IMeasMin1uA, IMeasMin10uA, IMeasMin100uA,
		IMeasMin1mA, IMeasMin10mA, IMeasMin100mA,
		IMeasFix1pA, IMeasFix10pA, IMeasFix100pA,
		IMeasFix1nA, IMeasFix10nA, IMeasFix100nA,
		IMeasFix1uA, IMeasFix10uA, IMeasFix100uA,
		IMeasFix1mA, IMeasFix10mA, IMeasFix100mA,
	}
	b1517aIOutputRanges = []IOutputRange{
		IOutAuto,
		IOutMin1pA, IOutMin10pA, IOutMin100pA,
		IOutMin1nA, IOutMin10nA, IOutMin100nA,
		IOutMin1uA, IOutMin10uA, IOutMin100uA,
		IOutMin1mA, IOutMin10mA, IOutMin100mA,
	}
)

// KeysightB1517A is the B1517A high resolution SMU module.
type KeysightB1517A struct {
	parent *KeysightB1500
	name   string
	model  string
	slot   int

	validIMeasureRanges []IMeasRange
	validIOutputRanges  []IOutputRange

	iMeasureRange IMeasRange
	iOutputRange  IOutputRange
}

// NewKeysightB1517A creates the module in slot of parent. An empty name is
// generated from the model and slot.
func NewKeysightB1517A(parent *KeysightB1500, name string, slot int) (*KeysightB1517A, error) {
	x, err := newSMU(parent, "B1517A", name, slot)
	if err != nil {
		return nil, err
	}
	x.validIMeasureRanges = append([]IMeasRange(nil), b1517aIMeasureRanges...)
	x.validIOutputRanges = append([]IOutputRange(nil), b1517aIOutputRanges...)
	return x, nil
}

func newSMU(parent *KeysightB1500, model, name string, slot int) (*KeysightB1517A, error) {
	if slot < MinSlot || slot > MaxSlot {
		return nil, merry.Appendf(ErrSlot, "%s: slot %d, expected %d..%d", model, slot, MinSlot, MaxSlot)
	}
	if parent == nil {
		return nil, merry.Errorf("%s slot %d: no mainframe", model, slot)
	}
	if name == "" {
		name = fmt.Sprintf("%s_slot%d", model, slot)
	}
	return &KeysightB1517A{
		parent: parent,
		name:   name,
		model:  model,
		slot:   slot,
	}, nil
}

type NewModuleFunc = func(parent *KeysightB1500, name string, slot int) (SMU, error)

// Models maps model names to module constructors.
var Models = map[string]NewModuleFunc{
	"B1517A": func(parent *KeysightB1500, name string, slot int) (SMU, error) {
		m, err := NewKeysightB1517A(parent, name, slot)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	"B1511B": func(parent *KeysightB1500, name string, slot int) (SMU, error) {
		m, err := NewKeysightB1511B(parent, name, slot)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
}

// NewModule creates a module of the given model.
func NewModule(parent *KeysightB1500, model, name string, slot int) (SMU, error) {
	f, ok := Models[model]
	if !ok {
		return nil, merry.Appendf(ErrUnknownModel, "%q", model)
	}
	return f(parent, name, slot)
}

func (x *KeysightB1517A) Name() string  { return x.name }
func (x *KeysightB1517A) Model() string { return x.model }
func (x *KeysightB1517A) Slot() int     { return x.slot }

// Channel is the channel number used in commands; one channel per slot.
func (x *KeysightB1517A) Channel() int { return x.slot }

func (x *KeysightB1517A) ValidIMeasureRanges() []IMeasRange {
	return append([]IMeasRange(nil), x.validIMeasureRanges...)
}

func (x *KeysightB1517A) ValidIOutputRanges() []IOutputRange {
	return append([]IOutputRange(nil), x.validIOutputRanges...)
}

func (x *KeysightB1517A) CheckIMeasureRange(r IMeasRange) error {
	for _, y := range x.validIMeasureRanges {
		if y == r {
			return nil
		}
	}
	return merry.Appendf(ErrRangeNotValid, "%s: measure range %s", x.name, r)
}

func (x *KeysightB1517A) CheckIOutputRange(r IOutputRange) error {
	for _, y := range x.validIOutputRanges {
		if y == r {
			return nil
		}
	}
	return merry.Appendf(ErrRangeNotValid, "%s: output range %s", x.name, r)
}

// SetIMeasureRange sets the current measurement range of the channel.
func (x *KeysightB1517A) SetIMeasureRange(ctx context.Context, r IMeasRange) error {
	if err := x.CheckIMeasureRange(r); err != nil {
		return err
	}
	if err := x.parent.Write(ctx, fmt.Sprintf("RI %d,%d", x.Channel(), r)); err != nil {
		return err
	}
	x.iMeasureRange = r
	return nil
}

// IMeasureRange returns the last range set with SetIMeasureRange.
func (x *KeysightB1517A) IMeasureRange() IMeasRange {
	return x.iMeasureRange
}

// SetIOutputRange selects the output range SourceCurrent uses when given none.
// Nothing is sent to the instrument.
func (x *KeysightB1517A) SetIOutputRange(r IOutputRange) error {
	if err := x.CheckIOutputRange(r); err != nil {
		return err
	}
	x.iOutputRange = r
	return nil
}

func (x *KeysightB1517A) IOutputRange() IOutputRange {
	return x.iOutputRange
}

// SourceCurrent forces current in output range r with voltage compliance.
func (x *KeysightB1517A) SourceCurrent(ctx context.Context, r IOutputRange, current, compliance float64) error {
	if err := x.CheckIOutputRange(r); err != nil {
		return err
	}
	cmd := fmt.Sprintf("DI %d,%d,%s,%s", x.Channel(), r, formatFloat(current), formatFloat(compliance))
	return x.parent.Write(ctx, cmd)
}

func (x *KeysightB1517A) Enable(ctx context.Context) error {
	return x.parent.Write(ctx, fmt.Sprintf("CN %d", x.Channel()))
}

func (x *KeysightB1517A) Disable(ctx context.Context) error {
	return x.parent.Write(ctx, fmt.Sprintf("CL %d", x.Channel()))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'E', -1, 64)
}
