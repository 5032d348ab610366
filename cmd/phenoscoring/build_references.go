package main

import (
	"context"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tkonopka/phenoscoring/internal/config"
	"github.com/tkonopka/phenoscoring/internal/ingest"
	"github.com/tkonopka/phenoscoring/internal/obo"
	"github.com/tkonopka/phenoscoring/internal/ontology"
	"github.com/tkonopka/phenoscoring/internal/refset"
	"github.com/tkonopka/phenoscoring/internal/repr"
	"github.com/tkonopka/phenoscoring/internal/specificity"
	"github.com/tkonopka/phenoscoring/internal/store"
	"github.com/tkonopka/phenoscoring/internal/telemetry"
)

func newBuildReferencesCmd(configPath *string, verbose *bool) *cobra.Command {
	var oboPath, concisePath, priorsPath, dbPath string

	cmd := &cobra.Command{
		Use:   "build-references",
		Short: "Parse an ontology and concise reference phenotypes, derive general and specific profiles",
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

			return buildReferences(cmd.Context(), cfg, logger, oboPath, concisePath, priorsPath, dbPath)
		},
	}
	cmd.Flags().StringVar(&oboPath, "obo", "", "ontology input in OBO flat-file format (required)")
	cmd.Flags().StringVar(&concisePath, "concise", "", "concise reference phenotypes TSV (required)")
	cmd.Flags().StringVar(&priorsPath, "feature-priors", "", "optional phenotype/frequency TSV; computed from data if absent")
	cmd.Flags().StringVar(&dbPath, "db", "phenoscoring.db", "output SQLite database path")
	cmd.MarkFlagRequired("obo")
	cmd.MarkFlagRequired("concise")
	return cmd
}

func buildReferences(ctx context.Context, cfg config.Config, logger *zap.Logger, oboPath, concisePath, priorsPath, dbPath string) error {
	oboFile, err := os.Open(oboPath)
	if err != nil {
		return err
	}
	defer oboFile.Close()
	terms, err := obo.Parse(oboFile)
	if err != nil {
		return err
	}
	onto, err := ontology.New(terms)
	if err != nil {
		return err
	}

	conciseFile, err := os.Open(concisePath)
	if err != nil {
		return err
	}
	defer conciseFile.Close()
	conciseRows, err := ingest.ReadConcisePhenotypes(conciseFile, onto, logger)
	if err != nil {
		return err
	}

	byReference := make(map[string]*repr.Representation)
	order := make([]string, 0)
	for _, row := range conciseRows {
		rp, ok := byReference[row.ID]
		if !ok {
			rp = repr.New(row.ID)
			byReference[row.ID] = rp
			order = append(order, row.ID)
		}
		rp.Set(row.Phenotype, row.Value)
	}
	sort.Strings(order)

	const null = "null"
	if _, ok := byReference[null]; !ok {
		byReference[null] = repr.New(null)
		order = append([]string{null}, order...)
	}

	features := onto.Ids()
	rs, err := refset.New(features, order, null)
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := rs.Add(byReference[name]); err != nil {
			return err
		}
	}

	priors := uniformReferencePriors(cfg, order, null)
	if err := rs.SetReferencePriors(priors); err != nil {
		return err
	}

	var external map[string]float64
	if priorsPath != "" {
		priorsFile, err := os.Open(priorsPath)
		if err != nil {
			return err
		}
		defer priorsFile.Close()
		freq, err := ingest.ReadFeatureFrequencies(priorsFile)
		if err != nil {
			return err
		}
		external = make(map[string]float64, len(freq))
		for _, f := range freq {
			external[f.Phenotype] = f.Frequency
		}
	}
	rs.Prep(external)

	defaults := make(map[string]float64, len(features))
	for _, f := range features {
		p, _ := rs.FeaturePrior(f)
		defaults[f] = p * cfg.ReferenceMissingFactor
	}
	for _, name := range order {
		complete, err := byReference[name].Impute(onto, defaults)
		if err != nil {
			return err
		}
		if err := rs.Add(complete); err != nil {
			return err
		}
	}

	if err := rs.LearnOBO(onto.Parents); err != nil {
		return err
	}

	profileRows, neighborRanks, err := specificity.Build(rs, cfg.ReferenceNeighborsK)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	priorRows := make([]store.ReferencePrior, 0, len(priors))
	for name, p := range priors {
		priorRows = append(priorRows, store.ReferencePrior{ID: name, Value: p})
	}
	if err := st.PutReferencePriors(ctx, priorRows); err != nil {
		return err
	}

	if external == nil {
		freqRows := make([]store.FeatureFrequency, 0, len(features))
		for _, f := range features {
			p, _ := rs.FeaturePrior(f)
			freqRows = append(freqRows, store.FeatureFrequency{Phenotype: f, Frequency: p})
		}
		if err := st.PutFeatureFrequencies(ctx, freqRows); err != nil {
			return err
		}
	}

	completeRows := make([]store.CompletePhenotype, 0, len(profileRows))
	for _, r := range profileRows {
		completeRows = append(completeRows, store.CompletePhenotype{
			ID: r.Reference, Phenotype: r.Feature, Value: r.Value, SpecificValue: r.Specific,
		})
	}
	if err := st.PutCompletePhenotypes(ctx, completeRows); err != nil {
		return err
	}

	neighborRows := make([]store.NeighborRow, 0, len(neighborRanks))
	for _, n := range neighborRanks {
		neighborRows = append(neighborRows, store.NeighborRow{ID: n.Reference, Neighbor: n.Neighbor, Rank: n.Rank})
	}
	return st.PutReferenceNeighbors(ctx, neighborRows)
}

// uniformReferencePriors assigns cfg.Prior to every non-null
// reference and the remainder (floored at cfg.Prior) to null.
func uniformReferencePriors(cfg config.Config, refs []string, null string) map[string]float64 {
	out := make(map[string]float64, len(refs))
	var sum float64
	for _, r := range refs {
		if r == null {
			continue
		}
		out[r] = cfg.Prior
		sum += cfg.Prior
	}
	out[null] = cfg.NullPrior(sum)
	return out
}
