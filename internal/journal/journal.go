// Package journal stores the commands exchanged with the instruments.
package journal

import (
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/fpawel/b1500/internal/pkg"
	"github.com/jmoiron/sqlx"
)

// created_at holds the local wall time as a julian day number.
const timeLayout = "2006-01-02 15:04:05.000"

const SQLSchema = `
PRAGMA foreign_keys = ON;
PRAGMA encoding = 'UTF-8';

CREATE TABLE IF NOT EXISTS entry
(
    entry_id   INTEGER PRIMARY KEY NOT NULL,
    created_at REAL    NOT NULL DEFAULT (julianday(STRFTIME('%Y-%m-%d %H:%M:%f', 'NOW', 'localtime'))),
    instrument TEXT    NOT NULL,
    command    TEXT    NOT NULL,
    reply      TEXT    NOT NULL DEFAULT '',
    error      TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS entry_created_at ON entry (created_at);`

type J struct {
	db *sqlx.DB
}

type Entry struct {
	EntryID    int64     `db:"entry_id"`
	CreatedAt  time.Time `db:"-"`
	Instrument string    `db:"instrument"`
	Command    string    `db:"command"`
	Reply      string    `db:"reply"`
	Error      string    `db:"error"`
}

type entryRow struct {
	Entry
	CreatedAt string `db:"created_at"`
}

var _ b1500.Recorder = new(J)

func Open(filename string) (*J, error) {
	db, err := pkg.OpenSqliteDBx(filename)
	if err != nil {
		return nil, merry.Prepend(err, filename)
	}
	if _, err := db.Exec(SQLSchema); err != nil {
		_ = db.Close()
		return nil, merry.Prepend(err, filename)
	}
	return &J{db: db}, nil
}

func (x *J) Close() error {
	return x.db.Close()
}

// Record stores e, a zero CreatedAt means now.
func (x *J) Record(e b1500.Entry) error {
	t := e.CreatedAt
	if t.IsZero() {
		t = time.Now()
	}
	r, err := x.db.Exec(
		`INSERT INTO entry(created_at, instrument, command, reply, error) VALUES (julianday(?), ?, ?, ?, ?)`,
		t.Local().Format(timeLayout), e.Instrument, e.Command, e.Reply, e.Error)
	if err != nil {
		return merry.Wrap(err)
	}
	_, err = pkg.SqlGetNewInsertedID(r)
	return err
}

// ListDays returns the days having entries, latest first.
func (x *J) ListDays() ([]time.Time, error) {
	var xs []string
	err := x.db.Select(&xs, `
SELECT DISTINCT STRFTIME('%Y-%m-%d', created_at) AS day
FROM entry
ORDER BY day DESC`)
	if err != nil {
		return nil, merry.Wrap(err)
	}
	days := make([]time.Time, 0, len(xs))
	for _, s := range xs {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return nil, merry.Wrap(err)
		}
		days = append(days, t)
	}
	return days, nil
}

// EntriesOfDay returns the entries of the day containing t in order of creation.
func (x *J) EntriesOfDay(t time.Time) ([]Entry, error) {
	var rows []entryRow
	err := x.db.Select(&rows, `
SELECT entry_id, STRFTIME('%Y-%m-%d %H:%M:%f', created_at) AS created_at, instrument, command, reply, error
FROM entry
WHERE STRFTIME('%Y-%m-%d', created_at) = ?
ORDER BY entry_id`, t.Local().Format("2006-01-02"))
	if err != nil {
		return nil, merry.Wrap(err)
	}
	xs := make([]Entry, len(rows))
	for i, r := range rows {
		xs[i] = r.Entry
		xs[i].CreatedAt, err = time.ParseInLocation(timeLayout, r.CreatedAt, time.Local)
		if err != nil {
			return nil, merry.Wrap(err)
		}
	}
	return xs, nil
}
