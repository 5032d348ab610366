package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tkonopka/phenoscoring/internal/phenoerr"
)

// schema mirrors the table/column names named in spec.md §6 exactly,
// since they are shared by preparation and scoring tools.
const schema = `
CREATE TABLE IF NOT EXISTS model_description (
	id TEXT PRIMARY KEY, category TEXT, description TEXT, timestamp DATETIME
);
CREATE TABLE IF NOT EXISTS model_phenotype (
	id TEXT, phenotype TEXT, timestamp DATETIME, value REAL, tpr REAL, fpr REAL
);
CREATE TABLE IF NOT EXISTS model_score (
	model TEXT, reference TEXT, timestamp DATETIME, general REAL, specific REAL
);
CREATE TABLE IF NOT EXISTS reference_neighbors (
	id TEXT, neighbor TEXT, rank INTEGER
);
CREATE TABLE IF NOT EXISTS reference_priors (
	id TEXT PRIMARY KEY, value REAL
);
CREATE TABLE IF NOT EXISTS reference_concise_phenotype (
	id TEXT, phenotype TEXT, value REAL
);
CREATE TABLE IF NOT EXISTS reference_complete_phenotype (
	id TEXT, phenotype TEXT, value REAL, specific_value REAL
);
CREATE TABLE IF NOT EXISTS phenotype_frequency (
	phenotype TEXT PRIMARY KEY, frequency REAL
);
CREATE INDEX IF NOT EXISTS idx_model_phenotype_id ON model_phenotype(id);
CREATE INDEX IF NOT EXISTS idx_model_score_model ON model_score(model);
CREATE INDEX IF NOT EXISTS idx_reference_neighbors_id ON reference_neighbors(id);
CREATE INDEX IF NOT EXISTS idx_reference_concise_id ON reference_concise_phenotype(id);
CREATE INDEX IF NOT EXISTS idx_reference_complete_id ON reference_complete_phenotype(id);
`

// SQLite is a Store implementation backed by a pure-Go SQLite driver.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed Store at path.
// Use ":memory:" for an ephemeral in-process store.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) PutModelDescription(ctx context.Context, d ModelDescription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_description(id, category, description, timestamp) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET category=excluded.category, description=excluded.description, timestamp=excluded.timestamp`,
		d.ID, d.Category, d.Description, d.Timestamp)
	return err
}

func (s *SQLite) ModelDescription(ctx context.Context, modelID string) (ModelDescription, error) {
	var d ModelDescription
	row := s.db.QueryRowContext(ctx,
		`SELECT id, category, description, timestamp FROM model_description WHERE id = ?`, modelID)
	if err := row.Scan(&d.ID, &d.Category, &d.Description, &d.Timestamp); err != nil {
		if err == sql.ErrNoRows {
			return ModelDescription{}, phenoerr.New(phenoerr.UnknownModel, modelID, err)
		}
		return ModelDescription{}, err
	}
	return d, nil
}

func (s *SQLite) DeleteModelDescription(ctx context.Context, modelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM model_description WHERE id = ?`, modelID)
	return err
}

func (s *SQLite) PutModelPhenotypes(ctx context.Context, rows []ModelPhenotype) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO model_phenotype(id, phenotype, timestamp, value, tpr, fpr) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ModelID, r.Phenotype, r.Timestamp, r.Value, r.TPR, r.FPR); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ModelPhenotypes(ctx context.Context, modelID string) ([]ModelPhenotype, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phenotype, timestamp, value, tpr, fpr FROM model_phenotype WHERE id = ?`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelPhenotype
	for rows.Next() {
		var r ModelPhenotype
		if err := rows.Scan(&r.ModelID, &r.Phenotype, &r.Timestamp, &r.Value, &r.TPR, &r.FPR); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutScoreRows(ctx context.Context, rows []ScoreRow) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO model_score(model, reference, timestamp, general, specific) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Model, r.Reference, r.Timestamp, r.General, r.Specific); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteModelScores removes every score row for modelID, supporting a
// clean rescore of a model whose phenotypes changed.
func (s *SQLite) DeleteModelScores(ctx context.Context, modelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM model_score WHERE model = ?`, modelID)
	return err
}

func (s *SQLite) ScoresForModel(ctx context.Context, modelID string) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, reference, timestamp, general, specific FROM model_score WHERE model = ?`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.Model, &r.Reference, &r.Timestamp, &r.General, &r.Specific); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutReferenceNeighbors(ctx context.Context, rows []NeighborRow) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reference_neighbors(id, neighbor, rank) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Neighbor, r.Rank); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ReferenceNeighbors(ctx context.Context, referenceID string) ([]NeighborRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, neighbor, rank FROM reference_neighbors WHERE id = ? ORDER BY rank`, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []NeighborRow
	for rows.Next() {
		var r NeighborRow
		if err := rows.Scan(&r.ID, &r.Neighbor, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutReferencePriors(ctx context.Context, rows []ReferencePrior) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reference_priors(id, value) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET value=excluded.value`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ReferencePriors(ctx context.Context) ([]ReferencePrior, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, value FROM reference_priors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReferencePrior
	for rows.Next() {
		var r ReferencePrior
		if err := rows.Scan(&r.ID, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutConcisePhenotypes(ctx context.Context, rows []ConcisePhenotype) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reference_concise_phenotype(id, phenotype, value) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Phenotype, r.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) ConcisePhenotypes(ctx context.Context, referenceID string) ([]ConcisePhenotype, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phenotype, value FROM reference_concise_phenotype WHERE id = ?`, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcisePhenotype
	for rows.Next() {
		var r ConcisePhenotype
		if err := rows.Scan(&r.ID, &r.Phenotype, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutCompletePhenotypes(ctx context.Context, rows []CompletePhenotype) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO reference_complete_phenotype(id, phenotype, value, specific_value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Phenotype, r.Value, r.SpecificValue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) CompletePhenotypes(ctx context.Context, referenceID string) ([]CompletePhenotype, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phenotype, value, specific_value FROM reference_complete_phenotype WHERE id = ?`, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CompletePhenotype
	for rows.Next() {
		var r CompletePhenotype
		if err := rows.Scan(&r.ID, &r.Phenotype, &r.Value, &r.SpecificValue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PutFeatureFrequencies(ctx context.Context, rows []FeatureFrequency) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO phenotype_frequency(phenotype, frequency) VALUES (?, ?)
			 ON CONFLICT(phenotype) DO UPDATE SET frequency=excluded.frequency`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.Phenotype, r.Frequency); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) FeatureFrequencies(ctx context.Context) ([]FeatureFrequency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phenotype, frequency FROM phenotype_frequency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FeatureFrequency
	for rows.Next() {
		var r FeatureFrequency
		if err := rows.Scan(&r.Phenotype, &r.Frequency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) ModelIDs(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT id FROM model_description`)
}

func (s *SQLite) ReferenceIDs(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT id FROM reference_priors`)
}

func (s *SQLite) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// withTx runs fn inside a transaction, committing on success and
// rolling back on any error so score/phenotype batches land
// atomically or not at all.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ Store = (*SQLite)(nil)
