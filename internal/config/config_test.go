package config

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/fpawel/comm"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type nopInstrument struct{}

func (nopInstrument) Write(context.Context, string) error { return nil }

func (nopInstrument) Ask(context.Context, string) (string, error) { return "", nil }

type fakeInstrument struct {
	cmds []string
}

func (x *fakeInstrument) Write(_ context.Context, cmd string) error {
	x.cmds = append(x.cmds, cmd)
	return nil
}

func (x *fakeInstrument) Ask(_ context.Context, cmd string) (string, error) {
	x.cmds = append(x.cmds, cmd)
	return "", nil
}

func tempFile(t *testing.T, content string) string {
	dir, err := ioutil.TempDir("", "b1500")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	filename := filepath.Join(dir, Filename)
	if content != "" {
		require.NoError(t, ioutil.WriteFile(filename, []byte(content), 0666))
	}
	return filename
}

func TestSaveLoad(t *testing.T) {
	filename := tempFile(t, "")
	c := Default()
	measure, output := b1500.IMeasFix10nA, b1500.IOutMin1uA
	c.Modules = append(c.Modules, Module{
		Slot:         3,
		Model:        "B1517A",
		Name:         "smu3",
		MeasureRange: &measure,
		OutputRange:  &output,
	})
	require.NoError(t, Save(filename, c))

	got, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadOrDefault(t *testing.T) {
	c, err := LoadOrDefault(tempFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad(t *testing.T) {
	filename := tempFile(t, `
mainframe:
  name: analyzer
  addr: 10.0.0.5:5025
  timeout_get_response: 3s
log_commands: true
modules:
  - slot: 2
    model: B1511B
    asu_present: true
    measure_range: FIX_1pA
    output_range: MIN_10pA
  - slot: 4
    model: B1517A
`)
	c, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, comm.Config{
		TimeoutGetResponse: 3 * time.Second,
		TimeoutEndResponse: DefaultTimeoutEndResponse,
		MaxAttemptsRead:    1,
	}, c.Mainframe.CommConfig())
	assert.True(t, c.LogCommands)

	instr := new(fakeInstrument)
	mf, err := c.Build(instr)
	require.NoError(t, err)
	assert.Equal(t, "analyzer", mf.Name())
	require.Len(t, mf.Modules(), 2)

	m, err := mf.SMU(2)
	require.NoError(t, err)
	asu, ok := m.(b1500.AsuModule)
	require.True(t, ok)
	assert.True(t, asu.AsuPresent())
	assert.NoError(t, asu.CheckIMeasureRange(b1500.IMeasFix1pA))
	assert.Equal(t, b1500.IOutMin10pA, asu.IOutputRange())
	assert.Empty(t, instr.cmds)

	require.NoError(t, c.Apply(context.Background(), mf))
	assert.Equal(t, []string{"RI 2,-8"}, instr.cmds)
	assert.Equal(t, b1500.IMeasFix1pA, asu.IMeasureRange())
}

func TestBuild_RangeNotValid(t *testing.T) {
	for _, s := range []string{
		"    measure_range: FIX_1pA\n",
		"    output_range: MIN_100pA\n",
		"    asu_present: false\n    output_range: MIN_1pA\n",
	} {
		var c Config
		require.NoError(t, yaml.Unmarshal([]byte("modules:\n  - slot: 1\n    model: B1511B\n"+s), &c), s)
		_, err := c.Build(nopInstrument{})
		assert.True(t, merry.Is(err, b1500.ErrRangeNotValid), s)
	}

	var c Config
	err := yaml.Unmarshal([]byte("modules:\n  - slot: 1\n    model: B1511B\n    measure_range: FIX_3nA\n"), &c)
	assert.True(t, merry.Is(err, b1500.ErrUnknownRange))
}

func TestJournalFilename(t *testing.T) {
	dir := filepath.Dir(os.Args[0])
	assert.Equal(t, filepath.Join(dir, "b1500.sqlite"), Default().JournalFilename())

	abs := filepath.Join(os.TempDir(), "journal.sqlite")
	for _, s := range []string{"", ":memory:", abs} {
		assert.Equal(t, s, Config{Journal: s}.JournalFilename())
	}
}

func TestValidate(t *testing.T) {
	var c Config
	require.NoError(t, yaml.Unmarshal([]byte(`
mainframe:
  timeout_get_response: -1s
modules:
  - slot: 0
    model: B1511B
    asu_present: "yes"
  - slot: 0
    model: B1500A
  - slot: 1
    model: B1517A
    asu_present: false
`), &c))

	err := c.Validate()
	require.Error(t, err)
	mulErr, ok := err.(*multierror.Error)
	require.True(t, ok)

	var notBool, unknownModel, invalid int
	for _, err := range mulErr.Errors {
		switch {
		case merry.Is(err, b1500.ErrNotBool):
			notBool++
		case merry.Is(err, b1500.ErrUnknownModel):
			unknownModel++
		case merry.Is(err, ErrConfig):
			invalid++
		}
	}
	assert.Equal(t, 1, notBool)
	assert.Equal(t, 1, unknownModel)
	// addr, timeout_get_response, two bad slots, slot used twice, asu on B1517A
	assert.Equal(t, 6, invalid)
}

func TestBuild_AsuNotBool(t *testing.T) {
	for _, s := range []string{`1`, `"true"`, `[true]`} {
		var c Config
		require.NoError(t, yaml.Unmarshal([]byte("modules:\n  - slot: 1\n    model: B1511B\n    asu_present: "+s+"\n"), &c))
		_, err := c.Build(nopInstrument{})
		assert.True(t, merry.Is(err, b1500.ErrNotBool), s)
	}
}
