package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tkonopka/phenoscoring/internal/config"
	"github.com/tkonopka/phenoscoring/internal/ingest"
	"github.com/tkonopka/phenoscoring/internal/inference"
	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
	"github.com/tkonopka/phenoscoring/internal/scheduler"
	"github.com/tkonopka/phenoscoring/internal/store"
	"github.com/tkonopka/phenoscoring/internal/telemetry"
)

func newScoreCmd(configPath *string, verbose *bool) *cobra.Command {
	var dbPath, modelsPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score model phenotype profiles against every built reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(*verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runScore(cmd.Context(), cfg, logger, dbPath, modelsPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "phenoscoring.db", "phenoscoring SQLite database path")
	cmd.Flags().StringVar(&modelsPath, "models", "", "model phenotypes TSV (required)")
	cmd.MarkFlagRequired("models")
	return cmd
}

func runScore(ctx context.Context, cfg config.Config, logger *zap.Logger, dbPath, modelsPath string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	generalRS, specificRS, err := loadReferenceSets(ctx, st)
	if err != nil {
		return err
	}

	modelsFile, err := os.Open(modelsPath)
	if err != nil {
		return err
	}
	defer modelsFile.Close()
	phenotypeRows, err := ingest.ReadModelPhenotypes(modelsFile, nil, logger)
	if err != nil {
		return err
	}

	models := make(map[string]*repr.Representation)
	var modelIDs []string
	for _, row := range phenotypeRows {
		m, ok := models[row.ModelID]
		if !ok {
			m = repr.New(row.ModelID)
			models[row.ModelID] = m
			modelIDs = append(modelIDs, row.ModelID)
		}
		m.Set(row.Phenotype, row.Value)
	}

	coordinator := &scheduler.Coordinator{
		General:       inference.New(generalRS, cfg.FPPenalty),
		Specific:      inference.New(specificRS, cfg.FPPenalty),
		Models:        models,
		MinInference:  cfg.MinInference,
		MinEnrichment: cfg.MinEnrichment,
		Store:         st,
		Cores:         cfg.Cores,
		Logger:        logger,
	}
	return coordinator.Run(ctx, generalRS.References(), modelIDs, cfg.PartitionSize)
}

// loadReferenceSets reconstructs the general and specific reference
// sets from the persisted complete-phenotype table. They are built
// once here and shared read-only by every packet.
func loadReferenceSets(ctx context.Context, st store.Store) (*refset.ReferenceSet, *refset.ReferenceSet, error) {
	priorRows, err := st.ReferencePriors(ctx)
	if err != nil {
		return nil, nil, err
	}
	refs := make([]string, 0, len(priorRows))
	priors := make(map[string]float64, len(priorRows))
	null := "null"
	for _, p := range priorRows {
		refs = append(refs, p.ID)
		priors[p.ID] = p.Value
	}

	featureSet := make(map[string]bool)
	type cell struct {
		ref, feature    string
		value, specific float64
	}
	var cells []cell
	for _, r := range refs {
		rows, err := st.CompletePhenotypes(ctx, r)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			featureSet[row.Phenotype] = true
			cells = append(cells, cell{r, row.Phenotype, row.Value, row.SpecificValue})
		}
	}
	features := make([]string, 0, len(featureSet))
	for f := range featureSet {
		features = append(features, f)
	}

	generalRS, err := refset.New(features, refs, null)
	if err != nil {
		return nil, nil, err
	}
	specificRS, err := refset.New(features, refs, null)
	if err != nil {
		return nil, nil, err
	}
	if err := generalRS.SetReferencePriors(priors); err != nil {
		return nil, nil, err
	}
	if err := specificRS.SetReferencePriors(priors); err != nil {
		return nil, nil, err
	}

	byRefGeneral := make(map[string]*repr.Representation, len(refs))
	byRefSpecific := make(map[string]*repr.Representation, len(refs))
	for _, r := range refs {
		byRefGeneral[r] = repr.New(r)
		byRefSpecific[r] = repr.New(r)
	}
	for _, c := range cells {
		byRefGeneral[c.ref].Set(c.feature, c.value)
		byRefSpecific[c.ref].Set(c.feature, c.specific)
	}
	for _, r := range refs {
		if err := generalRS.Add(byRefGeneral[r]); err != nil {
			return nil, nil, err
		}
		if err := specificRS.Add(byRefSpecific[r]); err != nil {
			return nil, nil, err
		}
	}

	freqRows, err := st.FeatureFrequencies(ctx)
	if err != nil {
		return nil, nil, err
	}
	var external map[string]float64
	if len(freqRows) > 0 {
		external = make(map[string]float64, len(freqRows))
		for _, f := range freqRows {
			external[f.Phenotype] = f.Frequency
		}
	}
	generalRS.Prep(external)
	specificRS.Prep(external)

	return generalRS, specificRS, nil
}
