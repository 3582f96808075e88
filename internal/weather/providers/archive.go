package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// Archive is a SQLite-backed sample store keyed by (easting, northing, label).
// It implements weather.Retriever.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (creating if needed) the archive at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Keeps ":memory:" archives on a single connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			sample_id INTEGER PRIMARY KEY AUTOINCREMENT,
			easting DOUBLE NOT NULL,
			northing DOUBLE NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			elevation DOUBLE NOT NULL,
			UNIQUE(easting, northing, label)
		);
		CREATE TABLE IF NOT EXISTS sample_values (
			sample_id INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			temperature DOUBLE,
			precipitation DOUBLE,
			snow_depth DOUBLE,
			new_snow_water DOUBLE,
			snow_water_equivalent DOUBLE,
			PRIMARY KEY (sample_id, ts),
			FOREIGN KEY(sample_id) REFERENCES samples(sample_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) Name() string {
	return "archive"
}

// Put stores s for the given location, replacing any previous sample.
func (a *Archive) Put(ctx context.Context, easting, northing float64, label string, s weather.Sample) error {
	if err := s.Validate(); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT sample_id FROM samples WHERE easting = ? AND northing = ? AND label = ?",
		easting, northing, label).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			"INSERT INTO samples (easting, northing, label, elevation) VALUES (?, ?, ?, ?)",
			easting, northing, label, s.Elevation)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.ExecContext(ctx, "UPDATE samples SET elevation = ? WHERE sample_id = ?", s.Elevation, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sample_values WHERE sample_id = ?", id); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sample_values
		(sample_id, ts, temperature, precipitation, snow_depth, new_snow_water, snow_water_equivalent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ts := range s.Time {
		_, err := stmt.ExecContext(ctx, id, ts.UTC().Unix(),
			nullable(s.Temperature[i]),
			nullable(s.Precipitation[i]),
			nullable(s.SnowDepth[i]),
			nullable(s.NewSnowWater[i]),
			nullable(s.SnowWaterEquivalent[i]),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Retrieve implements weather.Retriever. A location without a stored sample
// yields ErrSampleNotFound.
func (a *Archive) Retrieve(ctx context.Context, easting, northing float64, label string) (weather.Sample, error) {
	var (
		id int64
		s  weather.Sample
	)
	err := a.db.QueryRowContext(ctx,
		"SELECT sample_id, elevation FROM samples WHERE easting = ? AND northing = ? AND label = ?",
		easting, northing, label).Scan(&id, &s.Elevation)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Sample{}, fmt.Errorf("%w: (%.1f, %.1f) label %q", ErrSampleNotFound, easting, northing, label)
	}
	if err != nil {
		return weather.Sample{}, err
	}

	rows, err := a.db.QueryContext(ctx, `SELECT ts, temperature, precipitation, snow_depth, new_snow_water, snow_water_equivalent
		FROM sample_values WHERE sample_id = ? ORDER BY ts`, id)
	if err != nil {
		return weather.Sample{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts                        int64
			temp, pr, depth, nsw, swe sql.NullFloat64
		)
		if err := rows.Scan(&ts, &temp, &pr, &depth, &nsw, &swe); err != nil {
			return weather.Sample{}, err
		}
		s.Time = append(s.Time, time.Unix(ts, 0).UTC())
		s.Temperature = append(s.Temperature, orNaN(temp))
		s.Precipitation = append(s.Precipitation, orNaN(pr))
		s.SnowDepth = append(s.SnowDepth, orNaN(depth))
		s.NewSnowWater = append(s.NewSnowWater, orNaN(nsw))
		s.SnowWaterEquivalent = append(s.SnowWaterEquivalent, orNaN(swe))
	}
	if err := rows.Err(); err != nil {
		return weather.Sample{}, err
	}
	return s, nil
}

func nullable(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func orNaN(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
