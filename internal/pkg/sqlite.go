package pkg

import (
	"database/sql"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// OpenSqliteDBx opens fileName on a single connection, so ":memory:"
// databases stay the same for every query.
func OpenSqliteDBx(fileName string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", fileName)
	if err != nil {
		return nil, merry.Wrap(err)
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func SqlGetNewInsertedID(r sql.Result) (int64, error) {
	id, err := r.LastInsertId()
	if err != nil {
		return 0, merry.Wrap(err)
	}
	if id <= 0 {
		return 0, merry.New("was not inserted")
	}
	return id, nil
}
