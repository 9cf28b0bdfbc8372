// package rundb stores programs and the results of running them.
package rundb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gvm.dev/gvm"
	"gvm.dev/gvm/gvmproc"
	"gvm.dev/gvm/gvmprog"
	"gvm.dev/gvm/gvmtrace"
	"gvm.dev/gvm/internal/dbutil"
)

type RunID = int64

type ErrRunNotFound struct {
	RunID
}

func (e ErrRunNotFound) Error() string {
	return fmt.Sprintf("run %d not found", e.RunID)
}

type ErrProgramNotFound struct {
	gvm.Fingerprint
}

func (e ErrProgramNotFound) Error() string {
	return fmt.Sprintf("program %v not found", e.Fingerprint)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		fingerprint BLOB NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY(fingerprint)
	) WITHOUT ROWID, STRICT`,
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program BLOB NOT NULL,
		output TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		steps INTEGER NOT NULL,
		trace BLOB,
		created_at INTEGER NOT NULL,
		FOREIGN KEY(program) REFERENCES programs(fingerprint)
	) STRICT`,
}

// Open opens the database at p and creates any missing tables.
func Open(ctx context.Context, p string) (*sqlx.DB, error) {
	db, err := dbutil.Open(p)
	if err != nil {
		return nil, err
	}
	if err := Setup(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func Setup(ctx context.Context, db *sqlx.DB) error {
	return dbutil.DoTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Run is a stored execution result.
type Run struct {
	ID      RunID           `db:"id" json:"id"`
	Program gvm.Fingerprint `db:"program" json:"program"`
	Output  string          `db:"output" json:"output"`
	Error   string          `db:"error" json:"error,omitempty"`
	Steps   int64           `db:"steps" json:"steps"`
	// Trace is the CBOR encoded snapshot list, nil if the run was not traced.
	Trace []byte `db:"trace" json:"-"`
	// CreatedAt is in unix milliseconds.
	CreatedAt int64 `db:"created_at" json:"created_at"`
}

func (r Run) Time() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

func (r Run) Snapshots() ([]gvmtrace.Snapshot, error) {
	if r.Trace == nil {
		return nil, nil
	}
	return gvmtrace.Unmarshal(r.Trace)
}

func SaveProgram(ctx context.Context, db *sqlx.DB, prog gvmprog.Program) (gvm.Fingerprint, error) {
	return dbutil.DoTx1(ctx, db, func(tx *sqlx.Tx) (gvm.Fingerprint, error) {
		return saveProgram(ctx, tx, prog)
	})
}

func saveProgram(ctx context.Context, tx *sqlx.Tx, prog gvmprog.Program) (gvm.Fingerprint, error) {
	data, err := gvmprog.MarshalCBOR(prog)
	if err != nil {
		return gvm.Fingerprint{}, err
	}
	fp := gvmprog.Fingerprint(prog)
	if _, err := tx.ExecContext(ctx, `INSERT INTO programs (fingerprint, data)
		VALUES (?, ?) ON CONFLICT DO NOTHING`, fp, data); err != nil {
		return gvm.Fingerprint{}, err
	}
	return fp, nil
}

func GetProgram(ctx context.Context, db *sqlx.DB, fp gvm.Fingerprint) (gvmprog.Program, error) {
	var data []byte
	if err := db.GetContext(ctx, &data, `SELECT data FROM programs WHERE fingerprint = ?`, fp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrProgramNotFound{fp}
		}
		return gvmprog.Program{}, err
	}
	return gvmprog.UnmarshalCBOR(data)
}

// Insert records the result of running prog, saving prog if it is not already stored.
func Insert(ctx context.Context, db *sqlx.DB, prog gvmprog.Program, res gvmproc.Result) (Run, error) {
	run := Run{
		Output:    res.Output,
		Steps:     int64(res.Steps),
		CreatedAt: time.Now().UnixMilli(),
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if res.Trace != nil {
		data, err := gvmtrace.Marshal(res.Trace)
		if err != nil {
			return Run{}, err
		}
		run.Trace = data
	}
	return dbutil.DoTx1(ctx, db, func(tx *sqlx.Tx) (Run, error) {
		fp, err := saveProgram(ctx, tx, prog)
		if err != nil {
			return Run{}, err
		}
		run.Program = fp
		if err := tx.GetContext(ctx, &run.ID, `INSERT INTO runs (program, output, error, steps, trace, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			run.Program, run.Output, run.Error, run.Steps, run.Trace, run.CreatedAt); err != nil {
			return Run{}, err
		}
		return run, nil
	})
}

func Get(ctx context.Context, db *sqlx.DB, id RunID) (Run, error) {
	var run Run
	if err := db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRunNotFound{id}
		}
		return Run{}, err
	}
	return run, nil
}

// List returns up to limit runs, newest first, without their traces.
func List(ctx context.Context, db *sqlx.DB, limit int) ([]Run, error) {
	var runs []Run
	if err := db.SelectContext(ctx, &runs, `SELECT id, program, output, error, steps, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// Delete removes a run, and its program if no other run refers to it.
func Delete(ctx context.Context, db *sqlx.DB, id RunID) error {
	return dbutil.DoTx(ctx, db, func(tx *sqlx.Tx) error {
		var fp gvm.Fingerprint
		if err := tx.GetContext(ctx, &fp, `DELETE FROM runs WHERE id = ? RETURNING program`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrRunNotFound{id}
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE fingerprint = ? AND NOT EXISTS (
			SELECT 1 FROM runs WHERE program = ?
		)`, fp, fp)
		return err
	})
}
