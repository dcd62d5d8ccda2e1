// Package cluster groups near-duplicate scenario texts with Ward linkage.
package cluster

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/llm"
)

// DefaultDistanceThreshold is the Euclidean cut on unit vectors. Two texts
// merge when their cosine similarity is above roughly 0.82.
const DefaultDistanceThreshold = 0.6

// Grouper partitions texts into clusters of near-duplicates.
type Grouper struct {
	embedder          llm.Embedder
	distanceThreshold float64
	logger            *zap.Logger
}

// NewGrouper creates a grouper. A nil embedder selects local term-frequency
// vectors.
func NewGrouper(embedder llm.Embedder, distanceThreshold float64, logger *zap.Logger) *Grouper {
	if distanceThreshold <= 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grouper{
		embedder:          embedder,
		distanceThreshold: distanceThreshold,
		logger:            logger,
	}
}

// Group returns the clusters as lists of input indices. Clusters are ordered
// by their earliest member and members keep input order.
func (g *Grouper) Group(ctx context.Context, texts []string) ([][]int, error) {
	switch len(texts) {
	case 0:
		return nil, nil
	case 1:
		return [][]int{{0}}, nil
	}

	vectors, err := g.vectors(ctx, texts)
	if err != nil {
		return nil, err
	}

	labels := cutDendrogram(wardLinkage(pairwiseDistances(vectors), len(vectors)), len(vectors), g.distanceThreshold)

	var groups [][]int
	for i, label := range labels {
		if label == len(groups) {
			groups = append(groups, nil)
		}
		groups[label] = append(groups[label], i)
	}
	return groups, nil
}

func (g *Grouper) vectors(ctx context.Context, texts []string) ([][]float64, error) {
	if g.embedder == nil {
		return Vectorize(texts), nil
	}

	embeddings, err := g.embedder.Embed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("embedding failed, using lexical similarity", zap.Error(err))
		return Vectorize(texts), nil
	}
	if len(embeddings) != len(texts) {
		g.logger.Warn("embedder returned wrong count, using lexical similarity",
			zap.Int("texts", len(texts)), zap.Int("embeddings", len(embeddings)))
		return Vectorize(texts), nil
	}

	for _, v := range embeddings {
		normalize(v)
	}
	return embeddings, nil
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}
