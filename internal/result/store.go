package result

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/pitrac/lm/internal/pitracerr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the sqlite-backed shot-history log, adapted from
// db.DB/db.migrate.go: an embedded-migration database.DB wrapper opened
// once at startup, with WAL pragmas applied for a single-writer/
// many-reader access pattern (cmd/shotlog reads while cam1 writes).
type Store struct {
	*sql.DB
}

// OpenStore opens (creating if absent) the sqlite database at path and
// applies all pending migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "open shot store", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, pitracerr.Wrap(pitracerr.KindHardware, fmt.Sprintf("apply pragma %q", pragma), err)
		}
	}

	store := &Store{db}
	if err := store.migrateUp(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) migrateUp() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "load embedded migrations", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "create sqlite migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return pitracerr.Wrap(pitracerr.KindHardware, "create migrate instance", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return pitracerr.Wrap(pitracerr.KindHardware, "run shot store migrations", err)
	}
	return nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...any) { log.Printf("[migrate] "+format, v...) }
func (l *migrateLogger) Verbose() bool                  { return false }

// InsertShot persists one shot result and returns its assigned shot ID
// (the monotonic shot counter of spec.md §8 "Shot counter is monotonic
// non-decreasing across process lifetime").
func (s *Store) InsertShot(takenAtUnix int64, r ShotResult) (int64, error) {
	res, err := s.Exec(
		`INSERT INTO shots (taken_at_unix, ball_speed_mps, hla_deg, vla_deg, back_spin_rpm, side_spin_rpm, club, confidence, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		takenAtUnix, r.BallSpeedMPS, r.HLADeg, r.VLADeg, r.BackSpinRPM, r.SideSpinRPM, r.Club, r.Confidence, r.Message,
	)
	if err != nil {
		return 0, pitracerr.Wrap(pitracerr.KindHardware, "insert shot", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, pitracerr.Wrap(pitracerr.KindHardware, "read inserted shot id", err)
	}
	return id, nil
}

// RecentShots returns the last limit shots, most recent first.
func (s *Store) RecentShots(limit int) ([]ShotResult, error) {
	rows, err := s.Query(
		`SELECT ball_speed_mps, hla_deg, vla_deg, back_spin_rpm, side_spin_rpm, club, confidence, message
		 FROM shots ORDER BY shot_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, pitracerr.Wrap(pitracerr.KindHardware, "query recent shots", err)
	}
	defer rows.Close()

	var out []ShotResult
	for rows.Next() {
		var r ShotResult
		if err := rows.Scan(&r.BallSpeedMPS, &r.HLADeg, &r.VLADeg, &r.BackSpinRPM, &r.SideSpinRPM, &r.Club, &r.Confidence, &r.Message); err != nil {
			return nil, pitracerr.Wrap(pitracerr.KindHardware, "scan shot row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
