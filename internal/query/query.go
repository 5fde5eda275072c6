// Package query implements retrieval over a ContextTree: always-available
// keyword search, and an optional full-retrieval mode that blends keyword,
// semantic, and recency scores when an embeddings provider is configured.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/leefowlercu/memorizer/internal/cache"
	"github.com/leefowlercu/memorizer/internal/metrics"
	"github.com/leefowlercu/memorizer/internal/providers"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// Config controls result limits and the full-retrieval scoring blend.
type Config struct {
	MaxResults int

	// KeywordWeight, SemanticWeight, and RecencyWeight are combined into
	// a single relevance score for full retrieval. They need not sum to
	// 1; ScoredNode.Score is the raw weighted sum.
	KeywordWeight  float64
	SemanticWeight float64
	RecencyWeight  float64

	// MinRelevance filters full-retrieval results below this score.
	MinRelevance float64

	// ExpandRelated includes each result's RelatedNodes in the response,
	// tagged with MatchRelated.
	ExpandRelated bool

	// RecencyHalfLifeDays controls how fast the recency score decays;
	// a node updated this many days ago scores 0.5.
	RecencyHalfLifeDays float64
}

// DefaultConfig returns the suggested defaults.
func DefaultConfig() Config {
	return Config{
		MaxResults:          20,
		KeywordWeight:       0.5,
		SemanticWeight:      0.35,
		RecencyWeight:       0.15,
		MinRelevance:        0.1,
		ExpandRelated:       true,
		RecencyHalfLifeDays: 30,
	}
}

// Engine answers queries against a tree. The embedder and index are
// optional: when nil, QueryFull degrades to a keyword+recency blend (the
// semantic term contributes 0) rather than hard-failing callers that have
// no embeddings configured.
type Engine struct {
	tree     *tree.ContextTree
	embedder providers.EmbeddingsProvider
	index    *SimilarityIndex
	vecCache cache.VectorStore
	cfg      Config
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEmbeddings wires an embeddings provider, similarity index, and vector
// cache, enabling the semantic term of full retrieval.
func WithEmbeddings(embedder providers.EmbeddingsProvider, index *SimilarityIndex, vecCache cache.VectorStore) Option {
	return func(e *Engine) {
		e.embedder = embedder
		e.index = index
		e.vecCache = vecCache
	}
}

// New creates an Engine over t.
func New(t *tree.ContextTree, cfg Config, opts ...Option) *Engine {
	e := &Engine{tree: t, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query runs keyword-only retrieval.
func (e *Engine) Query(q string) types.QueryResponse {
	start := time.Now()

	matches := e.tree.Search(q)

	truncated := false
	if e.cfg.MaxResults > 0 && len(matches) > e.cfg.MaxResults {
		matches = matches[:e.cfg.MaxResults]
		truncated = true
	}

	nodes := make([]types.NodeSummary, 0, len(matches))
	for _, n := range matches {
		nodes = append(nodes, toNodeSummary(n))
	}

	metrics.RecordQuery("keyword", time.Since(start))

	return types.QueryResponse{
		Nodes:            nodes,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Truncated:        truncated,
	}
}

// QueryFull runs blended keyword+semantic+recency retrieval.
// When no embedder is configured, the semantic term is 0 for every
// candidate and results degrade gracefully to a keyword+recency blend.
func (e *Engine) QueryFull(ctx context.Context, q string) (types.FullQueryResponse, error) {
	start := time.Now()

	tokens := tokenize(q)
	candidates := e.tree.Search(q)

	var queryVec []float32
	if e.embedder != nil && e.index != nil {
		vec, err := e.embedQuery(ctx, q)
		if err != nil {
			return types.FullQueryResponse{}, fmt.Errorf("embedding query; %w", err)
		}
		queryVec = vec
	}

	now := time.Now()
	scored := make([]types.ScoredNode, 0, len(candidates))
	seen := make(map[string]bool)

	for _, n := range candidates {
		seen[n.ID] = true
		sn, ok := e.scoreNode(n, tokens, queryVec, now)
		if !ok || sn.Score < e.cfg.MinRelevance {
			continue
		}
		scored = append(scored, sn)
	}

	if e.cfg.ExpandRelated {
		scored = e.expandRelated(candidates, scored, seen, tokens, queryVec, now)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	truncated := false
	if e.cfg.MaxResults > 0 && len(scored) > e.cfg.MaxResults {
		scored = scored[:e.cfg.MaxResults]
		truncated = true
	}

	metrics.RecordQuery("full", time.Since(start))

	return types.FullQueryResponse{
		Nodes:            scored,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Truncated:        truncated,
	}, nil
}

// scoreNode computes a weighted score and the best-explaining MatchReason
// for a single candidate node.
func (e *Engine) scoreNode(n types.ContextNode, tokens []string, queryVec []float32, now time.Time) (types.ScoredNode, bool) {
	matchedKeywords := matchedTokens(n, tokens)
	keywordScore := 0.0
	if len(tokens) > 0 {
		keywordScore = float64(len(matchedKeywords)) / float64(len(tokens))
	}

	semanticScore := 0.0
	if queryVec != nil && e.index != nil {
		if vec, ok := e.index.vectors[n.ID]; ok {
			semanticScore = CosineSimilarity(queryVec, vec)
		}
	}

	recencyScore := recencyScore(n.LastUpdated, now, e.cfg.RecencyHalfLifeDays)

	total := e.cfg.KeywordWeight*keywordScore + e.cfg.SemanticWeight*semanticScore + e.cfg.RecencyWeight*recencyScore

	reason := types.MatchReason{Kind: types.MatchKeyword, Keywords: matchedKeywords}
	if strings.EqualFold(strings.TrimSpace(n.Name), strings.TrimSpace(strings.Join(tokens, " "))) {
		reason = types.MatchReason{Kind: types.MatchExact}
	} else if semanticScore > keywordScore && semanticScore > 0 {
		reason = types.MatchReason{Kind: types.MatchSemantic, Similarity: semanticScore}
	} else if len(matchedKeywords) == 0 && matchedTags(n, tokens) != nil {
		reason = types.MatchReason{Kind: types.MatchTag, Tags: matchedTags(n, tokens)}
	}

	return types.ScoredNode{Node: toNodeSummary(n), Score: total, Reason: reason}, true
}

// expandRelated adds each scored node's related nodes (not already present)
// to the result set, tagged RelatedMatch, scored at a discount relative to
// the node that introduced them.
func (e *Engine) expandRelated(candidates []types.ContextNode, scored []types.ScoredNode, seen map[string]bool, tokens []string, queryVec []float32, now time.Time) []types.ScoredNode {
	byID := make(map[string]types.ContextNode, len(candidates))
	for _, n := range candidates {
		byID[n.ID] = n
	}

	const relatedDiscount = 0.5

	for _, sn := range append([]types.ScoredNode{}, scored...) {
		n, ok := byID[sn.Node.ID]
		if !ok {
			n, ok = e.tree.Get(sn.Node.ID)
			if !ok {
				continue
			}
		}
		for _, rel := range n.RelatedNodes {
			if seen[rel.NodeID] {
				continue
			}
			related, ok := e.tree.Get(rel.NodeID)
			if !ok {
				continue
			}
			seen[related.ID] = true

			reasonText := n.Name
			score := sn.Score * relatedDiscount * rel.Strength
			if score < e.cfg.MinRelevance {
				continue
			}
			scored = append(scored, types.ScoredNode{
				Node:  toNodeSummary(related),
				Score: score,
				Reason: types.MatchReason{
					Kind:       types.MatchRelated,
					ViaConcept: reasonText,
				},
			})
		}
	}

	return scored
}

func (e *Engine) embedQuery(ctx context.Context, q string) ([]float32, error) {
	if e.vecCache != nil {
		key := cache.VectorCacheKey(q, e.embedder.ModelName())
		if vec, ok := e.vecCache.Get(key); ok {
			metrics.RecordCacheAccess("vector", true)
			return vec, nil
		}
		metrics.RecordCacheAccess("vector", false)
	}

	result, err := e.embedder.Embed(ctx, providers.EmbeddingsRequest{Content: q})
	if err != nil {
		return nil, err
	}

	if e.vecCache != nil {
		e.vecCache.Put(cache.VectorCacheKey(q, e.embedder.ModelName()), result.Embedding)
	}
	return result.Embedding, nil
}

// recencyScore decays exponentially: a node updated halfLifeDays ago scores
// 0.5; a node updated now scores 1.
func recencyScore(lastUpdated, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	ageDays := now.Sub(lastUpdated).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(2, -ageDays/halfLifeDays)
}

func toNodeSummary(n types.ContextNode) types.NodeSummary {
	return types.NodeSummary{
		ID:            n.ID,
		Name:          n.Name,
		NodeTypeLabel: string(n.Type),
		Path:          n.Path,
		Summary:       n.Summary,
		Depth:         n.Depth,
		Keywords:      n.Keywords,
	}
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "to": true, "and": true,
	"in": true, "on": true, "for": true, "is": true, "are": true, "with": true,
	"it": true, "this": true, "that": true, "at": true,
}

func tokenize(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"()[]{}")
		if len(f) <= 1 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func matchedTokens(n types.ContextNode, tokens []string) []string {
	haystacks := []string{strings.ToLower(n.Name), strings.ToLower(n.Summary)}
	for _, k := range n.Keywords {
		haystacks = append(haystacks, strings.ToLower(k))
	}

	var matched []string
	for _, tok := range tokens {
		for _, h := range haystacks {
			if strings.Contains(h, tok) {
				matched = append(matched, tok)
				break
			}
		}
	}
	return matched
}

func matchedTags(n types.ContextNode, tokens []string) []string {
	var tags []string
	for _, tok := range tokens {
		for _, k := range n.Keywords {
			if strings.EqualFold(k, tok) {
				tags = append(tags, k)
			}
		}
	}
	return tags
}
