// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to retrieve and store the pin profiles of
// ZL3073x boards from the condition and configuration database.
package conddb // import "github.com/go-lpc/zldpll/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-lpc/zldpll/config"
	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to easily retrieve and store board
// profiles from the database.
type DB struct {
	db   *sql.DB
	name string // name of the database
}

// Profile describes a stored set of pin settings.
type Profile struct {
	ID    uint64
	Name  string
	Board string
	Date  time.Time
}

// Open opens a connection to the database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// LastProfile returns the name of the most recent profile of a board.
func (db *DB) LastProfile(ctx context.Context, board string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM profiles WHERE board=? ORDER BY datetime DESC LIMIT 1",
		board,
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query last profile: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get last profile value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for last profile: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("conddb: context error while retrieving last profile: %w", err)
	}

	if name == "" {
		return name, fmt.Errorf("conddb: no profile for board %q", board)
	}

	return name, nil
}

// Profiles lists the stored profiles.
func (db *DB) Profiles(ctx context.Context) ([]Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ps []Profile
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier, name, board, datetime FROM profiles ORDER BY datetime",
	)
	if err != nil {
		return ps, fmt.Errorf("conddb: could not run profiles query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Profile
		err = rows.Scan(&p.ID, &p.Name, &p.Board, &p.Date)
		if err != nil {
			return ps, fmt.Errorf("conddb: could not scan profiles: %w", err)
		}
		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return ps, fmt.Errorf("conddb: could not scan db for profiles: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return ps, fmt.Errorf("conddb: context error while retrieving profiles: %w", err)
	}

	return ps, nil
}

// PinSettings returns the pin settings of the named profile.
func (db *DB) PinSettings(ctx context.Context, profile string) ([]config.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pins []config.Pin
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT profile_pins.pin, profile_pins.dpll,
       profile_pins.priority, profile_pins.frequency,
       profile_pins.phase, profile_pins.esync
FROM profile_pins
JOIN profiles ON profiles.identifier=profile_pins.profile
WHERE (
	profiles.name=?
)
ORDER BY profile_pins.identifier
`,
		profile,
	)
	if err != nil {
		return pins, fmt.Errorf("conddb: could not run pin settings query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var (
			pin   config.Pin
			prio  sql.NullInt64
			freq  sql.NullInt64
			phase sql.NullInt64
			esync sql.NullInt64
		)
		err = rows.Scan(&pin.Name, &pin.DPLL, &prio, &freq, &phase, &esync)
		if err != nil {
			return pins, fmt.Errorf("conddb: could not scan row %d for pin settings: %w", i, err)
		}
		i++

		if prio.Valid {
			v := uint8(prio.Int64)
			pin.Priority = &v
		}
		if freq.Valid {
			v := uint64(freq.Int64)
			pin.Frequency = &v
		}
		if phase.Valid {
			v := int32(phase.Int64)
			pin.Phase = &v
		}
		if esync.Valid {
			v := uint64(esync.Int64)
			pin.Esync = &v
		}
		pins = append(pins, pin)
	}

	if err := rows.Err(); err != nil {
		return pins, fmt.Errorf("conddb: could not scan db for pin settings: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return pins, fmt.Errorf("conddb: context error while retrieving pin settings: %w", err)
	}

	return pins, nil
}

// SaveProfile stores the pin settings of a board under a new profile name.
func (db *DB) SaveProfile(ctx context.Context, name, board string, pins []config.Pin) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conddb: could not start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO profiles (name, board, datetime) VALUES (?, ?, ?)",
		name, board, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("conddb: could not insert profile %q: %w", name, err)
	}

	for _, pin := range pins {
		_, err = tx.ExecContext(
			ctx,
			`
INSERT INTO profile_pins (profile, pin, dpll, priority, frequency, phase, esync)
SELECT identifier, ?, ?, ?, ?, ?, ? FROM profiles WHERE name=?
`,
			pin.Name, pin.DPLL, pin.Priority, pin.Frequency, pin.Phase, pin.Esync,
			name,
		)
		if err != nil {
			return fmt.Errorf("conddb: could not insert settings of pin %q: %w", pin.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("conddb: could not commit profile %q: %w", name, err)
	}

	return nil
}
