// Package scheduler partitions a (references × models) scoring job
// into bounded packets and runs them over a worker pool, persisting
// only score rows above configured thresholds (spec.md §4.6, §5).
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tkonopka/phenoscoring/internal/inference"
	"github.com/tkonopka/phenoscoring/internal/phenoerr"
	"github.com/tkonopka/phenoscoring/internal/repr"
	"github.com/tkonopka/phenoscoring/internal/store"
)

// Packet is one independently runnable slice of the full (model,
// reference) cross product.
type Packet struct {
	References []string
	Models     []string
}

// Plan produces ceil(|references|/partitionSize) * ceil(|models|/partitionSize)
// packets; packet (i,j) covers the i-th slice of references and the
// j-th slice of models. Every (model, reference) pair appears in
// exactly one packet. When references or models is empty, a single
// empty packet stands in for that axis, so empty input yields one
// empty packet.
func Plan(references, models []string, partitionSize int) []Packet {
	if partitionSize < 1 {
		partitionSize = 1
	}
	refSlices := slices(references, partitionSize)
	modelSlices := slices(models, partitionSize)

	packets := make([]Packet, 0, len(refSlices)*len(modelSlices))
	for _, rs := range refSlices {
		for _, ms := range modelSlices {
			packets = append(packets, Packet{References: rs, Models: ms})
		}
	}
	return packets
}

func slices(items []string, size int) [][]string {
	if len(items) == 0 {
		return [][]string{{}}
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// Coordinator wires two sibling inference engines (scored against the
// general and specific reference sets), a model lookup, and a Store,
// running packets over a bounded worker pool and persisting only rows
// that clear the configured thresholds.
type Coordinator struct {
	General  *inference.Engine
	Specific *inference.Engine
	Models   map[string]*repr.Representation

	MinInference  float64
	MinEnrichment float64

	Store store.Store
	Cores int

	// Now overrides the score-row timestamp source; nil uses time.Now.
	Now func() time.Time

	// Logger receives a per-packet start/outcome line tagged with a
	// generated packet id; nil disables logging.
	Logger *zap.Logger
}

// Run plans packets over references and models and executes them
// across a worker pool bounded by c.Cores (≤1 core or ≤1 packet runs
// in-place).
func (c *Coordinator) Run(ctx context.Context, references, models []string, partitionSize int) error {
	packets := Plan(references, models, partitionSize)
	cores := c.Cores
	if cores <= 1 || len(packets) <= 1 {
		for _, p := range packets {
			if err := c.runPacket(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cores)
	for _, p := range packets {
		p := p
		g.Go(func() error { return c.runPacket(gctx, p) })
	}
	return g.Wait()
}

func (c *Coordinator) runPacket(ctx context.Context, p Packet) (err error) {
	if len(p.References) == 0 || len(p.Models) == 0 {
		return nil
	}
	packetID := uuid.NewString()
	if c.Logger != nil {
		c.Logger.Debug("packet started", zap.String("packet", packetID),
			zap.Int("references", len(p.References)), zap.Int("models", len(p.Models)))
		defer func() {
			if err != nil {
				c.Logger.Warn("packet failed", zap.String("packet", packetID), zap.Error(err))
			} else {
				c.Logger.Debug("packet finished", zap.String("packet", packetID))
			}
		}()
	}

	now := time.Now().UTC()
	if c.Now != nil {
		now = c.Now()
	}

	rows := make([]store.ScoreRow, 0, len(p.References)*len(p.Models))
	for _, m := range p.Models {
		model, ok := c.Models[m]
		if !ok {
			return phenoerr.New(phenoerr.UnknownModel, m, nil)
		}
		for _, r := range p.References {
			generalChain, err := c.General.Chain(model, r)
			if err != nil {
				return err
			}
			general := generalChain.Evaluate()

			var specific float64
			if c.Specific != nil {
				specificChain, err := c.Specific.Chain(model, r)
				if err != nil {
					return err
				}
				specific = specificChain.Evaluate()
			}

			refPrior, err := referencePrior(c.General, r)
			if err != nil {
				return err
			}
			enrichment := general / refPrior
			if general > c.MinInference || enrichment > c.MinEnrichment {
				rows = append(rows, store.ScoreRow{
					Model: m, Reference: r, Timestamp: now, General: general, Specific: specific,
				})
			}
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return c.Store.PutScoreRows(ctx, rows)
}

func referencePrior(e *inference.Engine, reference string) (float64, error) {
	return e.ReferencePrior(reference)
}

// HitPair is a (model, reference) pair whose general and specific
// scores both cleared threshold.
type HitPair struct {
	Model     string
	Reference string
}

// HighScorePairs returns the (model, reference) pairs among rows
// whose general and specific scores both exceed threshold.
func HighScorePairs(rows []store.ScoreRow, threshold float64) []HitPair {
	var out []HitPair
	for _, r := range rows {
		if r.General > threshold && r.Specific > threshold {
			out = append(out, HitPair{Model: r.Model, Reference: r.Reference})
		}
	}
	return out
}

// CountHitsPerReference counts, for every reference named in
// references, how many rows clear threshold1 (tier 1) and threshold2
// (tier 2). threshold2 defaults to threshold1 when <= 0.
func CountHitsPerReference(rows []store.ScoreRow, references []string, threshold1, threshold2 float64) map[string][2]int {
	if threshold2 <= 0 {
		threshold2 = threshold1
	}
	counts := make(map[string][2]int, len(references))
	for _, r := range references {
		counts[r] = [2]int{}
	}
	for _, p := range HighScorePairs(rows, threshold1) {
		c := counts[p.Reference]
		c[0]++
		counts[p.Reference] = c
	}
	for _, p := range HighScorePairs(rows, threshold2) {
		c := counts[p.Reference]
		c[1]++
		counts[p.Reference] = c
	}
	return counts
}
