// Package ribstore optionally mirrors the converged RIB into PostgreSQL,
// alongside the CSV output internal/output always writes. Useful for
// diffing successive simulation runs without re-parsing CSV.
package ribstore

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/JosephPizzuti/BGP-Simulator/internal/output"
)

const batchSize = 500

// PostgresSink upserts RIB rows into a bgp_ribs table, a fixed batch
// size and one transaction per batch.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens dbURL and ensures the bgp_ribs table exists.
func NewPostgresSink(dbURL string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bgp_ribs (
			asn     INTEGER NOT NULL,
			prefix  TEXT NOT NULL,
			as_path TEXT NOT NULL,
			PRIMARY KEY (asn, prefix)
		)
	`); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresSink{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// WriteRIB upserts every (AS, prefix) route currently installed in sim.
func (s *PostgresSink) WriteRIB(sim output.RIBSource) error {
	type row struct {
		asn    uint32
		prefix string
		asPath string
	}

	var batch []row
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, r := range batch {
			if _, err := tx.Exec(`
				INSERT INTO bgp_ribs (asn, prefix, as_path)
				VALUES ($1, $2, $3)
				ON CONFLICT (asn, prefix) DO UPDATE SET as_path = EXCLUDED.as_path
			`, r.asn, r.prefix, r.asPath); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("ribstore: wrote batch of %d rows", len(batch))
		batch = batch[:0]
		return nil
	}

	max := sim.MaxASN()
	for asn := uint32(1); asn <= max; asn++ {
		pol := sim.Policy(asn)
		if pol == nil {
			continue
		}
		for prefix, ann := range pol.LocalRIB() {
			batch = append(batch, row{asn: asn, prefix: prefix, asPath: output.RenderPath(ann.ASPath)})
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}
