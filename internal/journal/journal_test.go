package journal

import (
	"context"
	"testing"
	"time"

	"github.com/fpawel/b1500/internal/b1500"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopInstrument struct{}

func (nopInstrument) Write(context.Context, string) error { return nil }

func (nopInstrument) Ask(context.Context, string) (string, error) { return "B1500A", nil }

func TestJ(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, j.Close())
	}()

	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, j.Record(b1500.Entry{
		Instrument: "mf",
		Command:    "*RST",
		CreatedAt:  yesterday,
	}))

	mf := b1500.NewKeysightB1500("mf", nopInstrument{}, b1500.WithRecorder(j))
	smu, err := b1500.NewKeysightB1511B(mf, "", 1)
	require.NoError(t, err)
	require.NoError(t, smu.Enable(context.Background()))
	_, err = mf.IDN(context.Background())
	require.NoError(t, err)

	days, err := j.ListDays()
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].After(days[1]))
	assert.Equal(t, time.Now().Format("2006-01-02"), days[0].Format("2006-01-02"))

	xs, err := j.EntriesOfDay(days[0])
	require.NoError(t, err)
	require.Len(t, xs, 2)
	assert.Equal(t, "CN 1", xs[0].Command)
	assert.Equal(t, "*IDN?", xs[1].Command)
	assert.Equal(t, "B1500A", xs[1].Reply)
	assert.Equal(t, "mf", xs[1].Instrument)
	assert.Less(t, int64(time.Since(xs[0].CreatedAt)), int64(time.Minute))

	xs, err = j.EntriesOfDay(yesterday)
	require.NoError(t, err)
	require.Len(t, xs, 1)
	assert.Equal(t, "*RST", xs[0].Command)
}

func TestJ_CreatedAt(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, j.Close())
	}()

	created := time.Date(2020, time.March, 14, 15, 9, 26, 535_000_000, time.UTC)
	require.NoError(t, j.Record(b1500.Entry{
		Instrument: "mf",
		Command:    "CL 2",
		CreatedAt:  created,
	}))

	days, err := j.ListDays()
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, created.Local().Format("2006-01-02"), days[0].Format("2006-01-02"))

	xs, err := j.EntriesOfDay(created)
	require.NoError(t, err)
	require.Len(t, xs, 1)
	assert.Equal(t, "CL 2", xs[0].Command)
	assert.True(t, created.Equal(xs[0].CreatedAt), "%v != %v", created, xs[0].CreatedAt)
}
