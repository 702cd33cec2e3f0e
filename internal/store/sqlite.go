// Package store persists pipeline runs and their joined outputs to a local
// SQLite database so successive runs over revised inputs stay comparable.
// Geometry columns hold EWKB blobs.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/pipeline"
)

// SQLiteStore implements run persistence using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	started_at        DATETIME NOT NULL,
	finished_at       DATETIME NOT NULL,
	ward_count        INTEGER NOT NULL,
	site_count        INTEGER NOT NULL,
	bio_count         INTEGER NOT NULL,
	named_river_count INTEGER NOT NULL,
	bbox_river_count  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wards (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	code       TEXT NOT NULL,
	name       TEXT,
	site_count INTEGER NOT NULL,
	geom       BLOB
);

CREATE TABLE IF NOT EXISTS sites (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	site_id   TEXT NOT NULL,
	easting   REAL NOT NULL,
	northing  REAL NOT NULL,
	lon       REAL NOT NULL,
	lat       REAL NOT NULL,
	ward_code TEXT
);

CREATE TABLE IF NOT EXISTS bio_samples (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	site_id     TEXT NOT NULL,
	sample_date DATETIME,
	waterbody   TEXT,
	ntaxa       REAL NOT NULL,
	aspt        REAL NOT NULL,
	total_score REAL NOT NULL,
	easting     REAL,
	northing    REAL,
	ward_code   TEXT,
	geom        BLOB
);

CREATE TABLE IF NOT EXISTS river_segments (
	run_id TEXT NOT NULL REFERENCES runs(id),
	filter TEXT NOT NULL,
	name   TEXT,
	geom   BLOB
);

CREATE INDEX IF NOT EXISTS idx_wards_run_id ON wards(run_id);
CREATE INDEX IF NOT EXISTS idx_sites_run_id ON sites(run_id);
CREATE INDEX IF NOT EXISTS idx_bio_samples_run_id ON bio_samples(run_id);
CREATE INDEX IF NOT EXISTS idx_river_segments_run_id ON river_segments(run_id);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a full pipeline result under a fresh run id. The whole
// write is one transaction; a failed run leaves no partial rows.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *pipeline.Result) (string, error) {
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, ward_count, site_count, bio_count, named_river_count, bbox_river_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Started, res.Finished,
		len(res.Wards), len(res.Sites), len(res.Bio), len(res.NamedRiver), len(res.BBoxRivers),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	if err := s.insertWards(ctx, tx, id, res.Wards); err != nil {
		return "", err
	}
	if err := s.insertSites(ctx, tx, id, res.Sites); err != nil {
		return "", err
	}
	if err := s.insertBio(ctx, tx, id, res.Bio); err != nil {
		return "", err
	}
	if err := s.insertRivers(ctx, tx, id, "named", res.NamedRiver); err != nil {
		return "", err
	}
	if err := s.insertRivers(ctx, tx, id, "bbox", res.BBoxRivers); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit run")
	}
	return id, nil
}

func (s *SQLiteStore) insertWards(ctx context.Context, tx *sql.Tx, runID string, wards []model.Ward) error {
	for _, w := range wards {
		var blob []byte
		if w.Geometry != nil {
			var err error
			blob, err = encodeEWKB(w.Geometry)
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO wards (run_id, code, name, site_count, geom) VALUES (?, ?, ?, ?, ?)`,
			runID, w.Code, w.Name, w.Count, blob,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert ward %s", w.Code)
		}
	}
	return nil
}

func (s *SQLiteStore) insertSites(ctx context.Context, tx *sql.Tx, runID string, sites []model.Site) error {
	for _, site := range sites {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sites (run_id, site_id, easting, northing, lon, lat, ward_code) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, site.ID, site.Easting, site.Northing, site.Lon, site.Lat, site.WardCode,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert site %s", site.ID)
		}
	}
	return nil
}

func (s *SQLiteStore) insertBio(ctx context.Context, tx *sql.Tx, runID string, records []model.BioRecord) error {
	for _, rec := range records {
		var blob []byte
		if rec.Geometry != nil {
			var err error
			blob, err = encodeEWKB(rec.Geometry)
			if err != nil {
				return err
			}
		}
		var sampleDate any
		if !rec.SampleDate.IsZero() {
			sampleDate = rec.SampleDate
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bio_samples (run_id, site_id, sample_date, waterbody, ntaxa, aspt, total_score, easting, northing, ward_code, geom)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, rec.SiteID, sampleDate, rec.Waterbody, rec.NTaxa, rec.ASPT, rec.TotalScore,
			rec.Easting, rec.Northing, rec.WardCode, blob,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert bio sample for site %s", rec.SiteID)
		}
	}
	return nil
}

func (s *SQLiteStore) insertRivers(ctx context.Context, tx *sql.Tx, runID, filter string, segments []model.RiverSegment) error {
	for _, seg := range segments {
		var blob []byte
		if seg.Geometry != nil {
			var err error
			blob, err = encodeEWKB(seg.Geometry)
			if err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO river_segments (run_id, filter, name, geom) VALUES (?, ?, ?, ?)`,
			runID, filter, seg.Name, blob,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert %s river segment", filter)
		}
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	Started    string
	Finished   string
	WardCount  int
	SiteCount  int
	BioCount   int
	NamedCount int
	BBoxCount  int
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, ward_count, site_count, bio_count, named_river_count, bbox_river_count
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Started, &r.Finished,
			&r.WardCount, &r.SiteCount, &r.BioCount, &r.NamedCount, &r.BBoxCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate run rows")
	}
	return runs, nil
}
