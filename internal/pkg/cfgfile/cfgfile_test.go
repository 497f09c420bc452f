package cfgfile

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFilename(t *testing.T) {
	dir := filepath.Dir(os.Args[0])
	assert.Equal(t, filepath.Join(dir, "b1500.sqlite"), Filename("b1500.sqlite"))
	assert.Equal(t, filepath.Join(dir, "data", "b1500.sqlite"), Filename(filepath.Join("data", "b1500.sqlite")))

	abs := filepath.Join(os.TempDir(), "b1500.sqlite")
	assert.Equal(t, abs, Filename(abs))
}

func TestF(t *testing.T) {
	dir, err := ioutil.TempDir("", "cfgfile")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	f := New(filepath.Join(dir, "x.yaml"), yaml.Marshal, yaml.Unmarshal)
	assert.False(t, f.Exists())
	require.NoError(t, f.Set(map[string]int{"a": 1}))
	assert.True(t, f.Exists())

	var got map[string]int
	require.NoError(t, f.Get(&got))
	assert.Equal(t, map[string]int{"a": 1}, got)
}
