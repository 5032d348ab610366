package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tkonopka/phenoscoring/internal/config"
	"github.com/tkonopka/phenoscoring/internal/ingest"
	"github.com/tkonopka/phenoscoring/internal/inference"
	"github.com/tkonopka/phenoscoring/internal/repr"
	"github.com/tkonopka/phenoscoring/internal/store"
	"github.com/tkonopka/phenoscoring/internal/telemetry"
)

func newExplainCmd(configPath *string, verbose *bool) *cobra.Command {
	var dbPath, modelsPath, model, reference string
	var specific bool

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print a JSON evidence-chain explanation for one (model, reference) pair",
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
			return runExplain(cmd.Context(), cfg, logger, dbPath, modelsPath, model, reference, specific)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "phenoscoring.db", "phenoscoring SQLite database path")
	cmd.Flags().StringVar(&modelsPath, "models", "", "model phenotypes TSV (required)")
	cmd.Flags().StringVar(&model, "model", "", "model id to explain (required)")
	cmd.Flags().StringVar(&reference, "reference", "", "reference id to explain against (required)")
	cmd.Flags().BoolVar(&specific, "specific", false, "explain against the specific reference set instead of general")
	cmd.MarkFlagRequired("models")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("reference")
	return cmd
}

func runExplain(ctx context.Context, cfg config.Config, logger *zap.Logger, dbPath, modelsPath, modelID, reference string, specific bool) error {
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
	rows, err := ingest.ReadModelPhenotypes(modelsFile, nil, logger)
	if err != nil {
		return err
	}

	rp := repr.New(modelID)
	for _, r := range rows {
		if r.ModelID != modelID {
			continue
		}
		rp.Set(r.Phenotype, r.Value)
	}

	rs := generalRS
	if specific {
		rs = specificRS
	}
	chain, err := inference.New(rs, cfg.FPPenalty).Explain(rp, reference)
	if err != nil {
		return err
	}
	out, err := chain.Explain()
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
