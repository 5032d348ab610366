// Package store defines the abstract persistence interface shared by
// reference-set preparation and scoring (spec.md §6), plus a
// modernc.org/sqlite-backed implementation.
package store

import (
	"context"
	"time"
)

// ModelDescription is a row of model_description(id, category,
// description, timestamp).
type ModelDescription struct {
	ID          string
	Category    string
	Description string // JSON-encoded object
	Timestamp   time.Time
}

// ModelPhenotype is a row of model_phenotype(id, phenotype,
// timestamp, value, TPR, FPR).
type ModelPhenotype struct {
	ModelID   string
	Phenotype string
	Timestamp time.Time
	Value     float64
	TPR       float64
	FPR       float64
}

// ScoreRow is a row of model_score(model, reference, timestamp,
// general, specific).
type ScoreRow struct {
	Model     string
	Reference string
	Timestamp time.Time
	General   float64
	Specific  float64
}

// NeighborRow is a row of reference_neighbors(id, neighbor, rank).
type NeighborRow struct {
	ID       string
	Neighbor string
	Rank     int
}

// ReferencePrior is a row of reference_priors(id, value).
type ReferencePrior struct {
	ID    string
	Value float64
}

// ConcisePhenotype is a row of reference_concise_phenotype(id,
// phenotype, value).
type ConcisePhenotype struct {
	ID        string
	Phenotype string
	Value     float64
}

// CompletePhenotype is a row of reference_complete_phenotype(id,
// phenotype, value, specific_value).
type CompletePhenotype struct {
	ID            string
	Phenotype     string
	Value         float64
	SpecificValue float64
}

// FeatureFrequency is a row of phenotype_frequency(phenotype,
// frequency).
type FeatureFrequency struct {
	Phenotype string
	Frequency float64
}

// Store is the persistence boundary used by both reference-set
// preparation and the inference scheduler. Writes of multiple rows
// (PutScoreRows, PutModelPhenotypes, ...) must commit atomically: all
// rows land or none do.
type Store interface {
	PutModelDescription(ctx context.Context, d ModelDescription) error
	ModelDescription(ctx context.Context, modelID string) (ModelDescription, error)
	DeleteModelDescription(ctx context.Context, modelID string) error

	PutModelPhenotypes(ctx context.Context, rows []ModelPhenotype) error
	ModelPhenotypes(ctx context.Context, modelID string) ([]ModelPhenotype, error)

	PutScoreRows(ctx context.Context, rows []ScoreRow) error
	// DeleteModelScores removes every score row for modelID, so a
	// model can be rescored cleanly.
	DeleteModelScores(ctx context.Context, modelID string) error
	ScoresForModel(ctx context.Context, modelID string) ([]ScoreRow, error)

	PutReferenceNeighbors(ctx context.Context, rows []NeighborRow) error
	ReferenceNeighbors(ctx context.Context, referenceID string) ([]NeighborRow, error)

	PutReferencePriors(ctx context.Context, rows []ReferencePrior) error
	ReferencePriors(ctx context.Context) ([]ReferencePrior, error)

	PutConcisePhenotypes(ctx context.Context, rows []ConcisePhenotype) error
	ConcisePhenotypes(ctx context.Context, referenceID string) ([]ConcisePhenotype, error)

	PutCompletePhenotypes(ctx context.Context, rows []CompletePhenotype) error
	CompletePhenotypes(ctx context.Context, referenceID string) ([]CompletePhenotype, error)

	PutFeatureFrequencies(ctx context.Context, rows []FeatureFrequency) error
	FeatureFrequencies(ctx context.Context) ([]FeatureFrequency, error)

	ModelIDs(ctx context.Context) ([]string, error)
	ReferenceIDs(ctx context.Context) ([]string, error)

	Close() error
}
