package b1500

import (
	"github.com/ansel1/merry"
)

var ErrNotBool = merry.New("expected: true or false")

// AsuModule is a module that can be paired with an ASU.
type AsuModule interface {
	SMU
	AsuPresent() bool
	SetAsuPresent(bool)
	SetAsuPresentValue(interface{}) error
}

var (
	b1511bIMeasureRanges = []IMeasRange{
		IMeasAuto,
		IMeasMin1nA, IMeasMin10nA, IMeasMin100nA,
		IMeasMin1uA, IMeasMin10uA, IMeasMin100uA,
		IMeasMin1mA, IMeasMin10mA, IMeasMin100mA,
		IMeasFix1nA, IMeasFix10nA, IMeasFix100nA,
		IMeasFix1uA, IMeasFix10uA, IMeasFix100uA,
		IMeasFix1mA, IMeasFix10mA, IMeasFix100mA,
	}
	b1511bAsuIMeasureRanges = []IMeasRange{
		IMeasMin1pA, IMeasMin10pA, IMeasMin100pA,
		IMeasFix1pA, IMeasFix10pA, IMeasFix100pA,
	}
	b1511bIOutputRanges = []IOutputRange{
		IOutAuto,
		IOutMin1nA, IOutMin10nA, IOutMin100nA,
		IOutMin1uA, IOutMin10uA, IOutMin100uA,
		IOutMin1mA, IOutMin10mA, IOutMin100mA,
	}
	b1511bAsuIOutputRanges = []IOutputRange{
		IOutMin1pA, IOutMin10pA, IOutMin100pA,
	}
)

// KeysightB1511B is the B1511B medium power SMU module. The picoampere ranges
// are only available with the atto sense unit (ASU) connected.
type KeysightB1511B struct {
	KeysightB1517A
	asuPresent bool
}

// B1511B is kept for older setups that refer to the short name.
type B1511B = KeysightB1511B

// NewB1511B is the short name of NewKeysightB1511B.
var NewB1511B = NewKeysightB1511B

// NewKeysightB1511B creates the module in slot of parent with the ASU absent.
func NewKeysightB1511B(parent *KeysightB1500, name string, slot int) (*KeysightB1511B, error) {
	smu, err := newSMU(parent, "B1511B", name, slot)
	if err != nil {
		return nil, err
	}
	x := &KeysightB1511B{KeysightB1517A: *smu}
	x.SetAsuPresent(false)
	return x, nil
}

func (x *KeysightB1511B) AsuPresent() bool {
	return x.asuPresent
}

// SetAsuPresent stores the ASU flag and recomputes the valid current ranges.
// With the ASU the picoampere ranges are appended to the base list as is,
// without it they are removed from the base list and the order is not kept.
func (x *KeysightB1511B) SetAsuPresent(v bool) {
	x.asuPresent = v
	if v {
		x.validIMeasureRanges = concatIMeasRanges(b1511bIMeasureRanges, b1511bAsuIMeasureRanges)
		x.validIOutputRanges = concatIOutputRanges(b1511bIOutputRanges, b1511bAsuIOutputRanges)
		return
	}
	x.validIMeasureRanges = subtractIMeasRanges(b1511bIMeasureRanges, b1511bAsuIMeasureRanges)
	x.validIOutputRanges = subtractIOutputRanges(b1511bIOutputRanges, b1511bAsuIOutputRanges)
}

// SetAsuPresentValue is SetAsuPresent for values of unknown type, such as
// those decoded from setup files and scripts. Anything but a bool is
// rejected with ErrNotBool and the module is left as it was.
func (x *KeysightB1511B) SetAsuPresentValue(v interface{}) error {
	b, ok := v.(bool)
	if !ok {
		return merry.Appendf(ErrNotBool, "%s: asu_present=%v (%T)", x.name, v, v)
	}
	x.SetAsuPresent(b)
	return nil
}

func concatIMeasRanges(xs, ys []IMeasRange) []IMeasRange {
	r := make([]IMeasRange, 0, len(xs)+len(ys))
	r = append(r, xs...)
	return append(r, ys...)
}

func concatIOutputRanges(xs, ys []IOutputRange) []IOutputRange {
	r := make([]IOutputRange, 0, len(xs)+len(ys))
	r = append(r, xs...)
	return append(r, ys...)
}

func subtractIMeasRanges(xs, ys []IMeasRange) []IMeasRange {
	m := make(map[IMeasRange]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	for _, y := range ys {
		delete(m, y)
	}
	r := make([]IMeasRange, 0, len(m))
	for x := range m {
		r = append(r, x)
	}
	return r
}

func subtractIOutputRanges(xs, ys []IOutputRange) []IOutputRange {
	m := make(map[IOutputRange]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	for _, y := range ys {
		delete(m, y)
	}
	r := make([]IOutputRange, 0, len(m))
	for x := range m {
		r = append(r, x)
	}
	return r
}
