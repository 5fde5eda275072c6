// Package agent implements the orchestrator that turns a folder on disk
// into ContextTree nodes: it walks the folder, detects its
// domain, analyzes each file heuristically, and wires the resulting
// Document/FileReference nodes under a Project node.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leefowlercu/memorizer/internal/chunkers"
	"github.com/leefowlercu/memorizer/internal/errs"
	"github.com/leefowlercu/memorizer/internal/extract"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/internal/walker"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// ProcessingResult summarizes one process_folder run.
type ProcessingResult struct {
	NodesCreated           int
	EntitiesExtracted      int
	RelationshipsExtracted int
	Domain                 string
	CrossLinksCreated      int
	FilesProcessed         int
	Errors                 []FileError
	ProcessingTimeMs       int64
	RootNodeID             string
}

// FileError records a per-file failure that did not abort the folder.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// AnalysisContext is passed to the analyzer for each file.
type AnalysisContext struct {
	FilePath        string
	FileExtension   string
	ParentFolder    string
	ExistingDomains []string
}

// DocumentAnalysis is the analyzer's heuristic output for one file.
type DocumentAnalysis struct {
	Summary         string
	Entities        []types.Entity
	Relationships   []types.Relationship
	Topics          []string
	SuggestedDomain string
	Confidence      float64
}

// Config controls folder collection and analysis limits.
type Config struct {
	// Extensions, when non-empty, restricts collected files to these
	// extensions (without the leading dot, case-insensitive).
	Extensions []string

	// MaxFilesPerFolder caps how many files are collected from a single
	// folder. Zero means unbounded.
	MaxFilesPerFolder int

	// MaxDepth bounds recursion into subfolders. Nil means unbounded.
	MaxDepth *int

	// AutoCrossLink runs BuildCrossLinks after the folder is processed.
	AutoCrossLink bool

	// SummaryFileCount is how many files are sampled when building the
	// folder summary. Default 10.
	SummaryFileCount int

	// SummaryLineCount is how many leading lines are taken from each
	// sampled file. Default 5.
	SummaryLineCount int

	// KnownDomains pre-registers domain names so is_new_domain is computed
	// correctly even before the tree itself has seen a domain, e.g. when
	// restoring into a tree built from a different source.
	KnownDomains []string

	// HeuristicOnly forces analyzeFile to skip any configured
	// DocumentAnalyzer and use only the built-in heuristic, regardless of
	// whether an analyzer is attached via WithAnalyzer. Useful for
	// deterministic tests and offline operation.
	HeuristicOnly bool

	// AddFileReferences adds a FileReference child under each Document
	// node, giving the optimizer's stale-leaf pruning and sibling merging
	// concrete targets.
	AddFileReferences bool

	// Chunker controls how file content is split into chunks ahead of
	// entity extraction. Zero value falls back to chunkers.DefaultConfig().
	Chunker chunkers.Config
}

// DocumentAnalyzer is a pluggable, LLM-backed alternative to the built-in
// heuristic DocumentAnalysis. When attached via WithAnalyzer (and
// Config.HeuristicOnly is false), it is tried first; a returned error falls
// back to the heuristic rather than failing the file.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, actx AnalysisContext, content []byte) (DocumentAnalysis, error)
}

// DefaultConfig returns the default collection and analysis limits.
func DefaultConfig() Config {
	return Config{
		MaxFilesPerFolder: 1000,
		AutoCrossLink:     true,
		SummaryFileCount:  10,
		SummaryLineCount:  5,
		Chunker:           chunkers.DefaultConfig(),
	}
}

// NodeMirror receives a best-effort copy of every node the orchestrator
// creates or updates. Implemented by internal/graphmirror.Mirror; nil by
// default so the orchestrator has no dependency on a graph backend being
// configured.
type NodeMirror interface {
	UpsertNode(n types.ContextNode)
}

// Orchestrator implements process_folder against a shared ContextTree.
type Orchestrator struct {
	tree      *tree.ContextTree
	cfg       Config
	entityCfg extract.EntityConfig
	relCfg    extract.RelationshipConfig
	logger    *slog.Logger
	mirror    NodeMirror
	analyzer  DocumentAnalyzer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the default no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEntityConfig overrides the entity-extraction configuration.
func WithEntityConfig(cfg extract.EntityConfig) Option {
	return func(o *Orchestrator) { o.entityCfg = cfg }
}

// WithRelationshipConfig overrides the relationship-extraction
// configuration.
func WithRelationshipConfig(cfg extract.RelationshipConfig) Option {
	return func(o *Orchestrator) { o.relCfg = cfg }
}

// WithMirror attaches a NodeMirror that receives every node this
// Orchestrator creates, in addition to the authoritative tree.
func WithMirror(mirror NodeMirror) Option {
	return func(o *Orchestrator) { o.mirror = mirror }
}

// WithAnalyzer attaches a pluggable DocumentAnalyzer, consulted ahead of the
// built-in heuristic unless Config.HeuristicOnly is set.
func WithAnalyzer(analyzer DocumentAnalyzer) Option {
	return func(o *Orchestrator) { o.analyzer = analyzer }
}

// New creates an Orchestrator operating on t, chunking file content
// during per-file analysis according to cfg.Chunker.
func New(t *tree.ContextTree, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tree:      t,
		cfg:       cfg,
		entityCfg: extract.DefaultEntityConfig(),
		relCfg:    extract.DefaultRelationshipConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.SummaryFileCount <= 0 {
		o.cfg.SummaryFileCount = 10
	}
	if o.cfg.SummaryLineCount <= 0 {
		o.cfg.SummaryLineCount = 5
	}
	if o.cfg.Chunker.MaxTokens <= 0 {
		o.cfg.Chunker = chunkers.DefaultConfig()
	}
	return o
}

// Builder fluently assembles an Orchestrator, mirroring the original's
// AgentBuilder for call sites that wire up a tree, config, and optional
// extractors/mirror/analyzer across several steps rather than one call.
type Builder struct {
	tree *tree.ContextTree
	cfg  Config
	opts []Option
}

// NewBuilder starts a fluent Orchestrator assembly.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithTree sets the ContextTree the built Orchestrator will mutate.
func (b *Builder) WithTree(t *tree.ContextTree) *Builder {
	b.tree = t
	return b
}

// WithChunkerConfig sets the chunker configuration used for per-file
// analysis.
func (b *Builder) WithChunkerConfig(cfg chunkers.Config) *Builder {
	b.cfg.Chunker = cfg
	return b
}

// WithConfig sets the collection/analysis configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithExtractors sets the entity-extraction configuration.
func (b *Builder) WithExtractors(cfg extract.EntityConfig) *Builder {
	b.opts = append(b.opts, WithEntityConfig(cfg))
	return b
}

// WithRelationshipExtractors sets the relationship-extraction
// configuration.
func (b *Builder) WithRelationshipExtractors(cfg extract.RelationshipConfig) *Builder {
	b.opts = append(b.opts, WithRelationshipConfig(cfg))
	return b
}

// WithLogger attaches a logger to the built Orchestrator.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(logger))
	return b
}

// WithMirror attaches a NodeMirror to the built Orchestrator.
func (b *Builder) WithMirror(mirror NodeMirror) *Builder {
	b.opts = append(b.opts, WithMirror(mirror))
	return b
}

// WithAnalyzer attaches a DocumentAnalyzer to the built Orchestrator.
func (b *Builder) WithAnalyzer(analyzer DocumentAnalyzer) *Builder {
	b.opts = append(b.opts, WithAnalyzer(analyzer))
	return b
}

// Build constructs the Orchestrator. tree is required.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.tree == nil {
		return nil, fmt.Errorf("agent.Builder: tree is required")
	}
	return New(b.tree, b.cfg, b.opts...), nil
}

// ProcessFolder runs the full folder-ingestion pipeline: validate, collect,
// detect domain, place a Project node, analyze each file, cross-link, and
// rewrite the root summary.
func (o *Orchestrator) ProcessFolder(ctx context.Context, path string) (*ProcessingResult, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("process folder %q; %w", path, errs.ErrNotFound)
	}

	entries, truncated, err := o.collectFiles(path)
	if err != nil {
		return nil, fmt.Errorf("collecting files under %q; %w", path, err)
	}
	if truncated {
		o.logger.Warn("folder file collection truncated", "path", path, "limit", o.cfg.MaxFilesPerFolder)
	}

	summary, extensions := o.buildFolderSummary(entries)

	existingDomains := o.existingDomainNames()
	detection := DetectDomain(summary, extensions, existingDomains)

	result := &ProcessingResult{Domain: detection.Domain}
	nodesBefore := o.tree.NodeCount()

	projectNode := types.ContextNode{
		Type:        types.NodeTypeProject,
		Name:        filepath.Base(path),
		Path:        path,
		Summary:     fmt.Sprintf("Project at %s (%s)", path, detection.Domain),
		Confidence:  detection.Confidence,
		LastUpdated: time.Now(),
	}
	projectID, err := o.tree.ApplyDomainDetection(projectNode, detection)
	if err != nil {
		return nil, fmt.Errorf("placing project node; %w", err)
	}
	o.mirrorNode(projectID)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(e.Path)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: e.Path, Err: err})
			continue
		}

		analysisCtx := AnalysisContext{
			FilePath:        e.Path,
			FileExtension:   e.Extension,
			ParentFolder:    path,
			ExistingDomains: existingDomains,
		}

		analysis, err := o.analyzeFile(ctx, analysisCtx, content)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: e.Path, Err: err})
			continue
		}

		docNode := types.ContextNode{
			Type:        types.NodeTypeDocument,
			Name:        filepath.Base(e.Path),
			Path:        e.Path,
			Summary:     analysis.Summary,
			Keywords:    analysis.Topics,
			Entities:    analysis.Entities,
			Confidence:  analysis.Confidence,
			LastUpdated: time.Now(),
		}
		docID, err := o.tree.AddChild(projectID, docNode)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: e.Path, Err: err})
			continue
		}
		o.mirrorNode(docID)

		if o.cfg.AddFileReferences {
			refNode := types.ContextNode{
				Type:        types.NodeTypeFileReference,
				Name:        filepath.Base(e.Path),
				Path:        e.Path,
				Summary:     fmt.Sprintf("File reference for %s", e.Path),
				LastUpdated: time.Now(),
			}
			if refID, err := o.tree.AddChild(docID, refNode); err == nil {
				o.mirrorNode(refID)
			}
		}

		result.EntitiesExtracted += len(analysis.Entities)
		result.RelationshipsExtracted += len(analysis.Relationships)
		result.FilesProcessed++
	}

	if o.cfg.AutoCrossLink {
		result.CrossLinksCreated = o.tree.BuildCrossLinks()
	}

	o.rewriteRootSummary()

	result.NodesCreated = o.tree.NodeCount() - nodesBefore
	result.RootNodeID = o.tree.RootID()
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result, nil
}

// collectFiles walks path, filtering by configured extensions and
// truncating at MaxFilesPerFolder.
func (o *Orchestrator) collectFiles(path string) ([]walker.Entry, bool, error) {
	entries, err := walker.Walk(path, walker.Options{
		MaxDepth:        o.cfg.MaxDepth,
		ExcludePatterns: walker.DefaultExcludePatterns(),
		Extensions:      o.cfg.Extensions,
	})
	if err != nil {
		return nil, false, err
	}

	if o.cfg.MaxFilesPerFolder > 0 && len(entries) > o.cfg.MaxFilesPerFolder {
		return entries[:o.cfg.MaxFilesPerFolder], true, nil
	}
	return entries, false, nil
}

// buildFolderSummary reads up to SummaryFileCount files, taking the first
// SummaryLineCount lines of each, and collects one extension entry per
// file so domain detection can pick the subcategory by majority language
// rather than by distinct extensions.
func (o *Orchestrator) buildFolderSummary(entries []walker.Entry) (string, []string) {
	var samples []string
	var extensions []string

	for i, e := range entries {
		if e.Extension != "" {
			extensions = append(extensions, e.Extension)
		}
		if i >= o.cfg.SummaryFileCount {
			continue
		}

		content, err := os.ReadFile(e.Path)
		if err != nil {
			continue
		}
		lines := strings.Split(string(content), "\n")
		if len(lines) > o.cfg.SummaryLineCount {
			lines = lines[:o.cfg.SummaryLineCount]
		}
		samples = append(samples, strings.Join(lines, "\n"))
	}

	sort.Strings(extensions)

	return strings.Join(samples, "\n"), extensions
}

// mirrorNode pushes the current state of node id to the configured
// NodeMirror, if any. Mirroring is best-effort and never affects the
// authoritative tree or returns an error to the caller.
func (o *Orchestrator) mirrorNode(id string) {
	if o.mirror == nil {
		return
	}
	if n, ok := o.tree.Get(id); ok {
		o.mirror.UpsertNode(n)
	}
}

func (o *Orchestrator) existingDomainNames() []string {
	idx := o.tree.DomainIndexSnapshot()
	seen := make(map[string]bool, len(idx)+len(o.cfg.KnownDomains))
	names := make([]string, 0, len(idx)+len(o.cfg.KnownDomains))
	for name := range idx {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range o.cfg.KnownDomains {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// rewriteRootSummary updates the Root node's summary to
// "User knowledge across N domain(s): d1 (k items), d2 (k items), …".
func (o *Orchestrator) rewriteRootSummary() {
	root, ok := o.tree.Get(o.tree.RootID())
	if !ok {
		return
	}

	type domainCount struct {
		name  string
		count int
	}
	var counts []domainCount
	for _, childID := range root.Children {
		child, ok := o.tree.Get(childID)
		if !ok || child.Type != types.NodeTypeDomain {
			continue
		}
		counts = append(counts, domainCount{name: child.Name, count: len(o.tree.GetDescendants(childID))})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].name < counts[j].name })

	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s (%d items)", c.name, c.count))
	}

	summary := fmt.Sprintf("User knowledge across %d domain(s): %s", len(counts), strings.Join(parts, ", "))
	o.tree.Mutate(o.tree.RootID(), func(n *types.ContextNode) {
		n.Summary = summary
	})
}

// analyzeFile produces the heuristic DocumentAnalysis:
// chunk the content, extract entities, derive a truncated
// summary and topic list, and compute a clamped confidence score.
func (o *Orchestrator) analyzeFile(ctx context.Context, actx AnalysisContext, content []byte) (DocumentAnalysis, error) {
	if o.analyzer != nil && !o.cfg.HeuristicOnly {
		if analysis, err := o.analyzer.Analyze(ctx, actx, content); err == nil {
			return analysis, nil
		} else {
			o.logger.Warn("document analyzer failed, falling back to heuristic", "path", actx.FilePath, "error", err)
		}
	}

	chunks := chunkers.Chunk(string(content), actx.FilePath, o.cfg.Chunker)

	entities := extract.ExtractEntities(chunks, o.entityCfg)
	relationships := extract.ExtractRelationships(entities, chunks, o.relCfg)

	summary := summarize(string(content))
	topics := deriveTopics(entities, string(content))

	confidence := 0.3
	if len(entities) > 0 {
		confidence += 0.2
	}
	if len(topics) > 0 {
		confidence += 0.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return DocumentAnalysis{
		Summary:       summary,
		Entities:      entities,
		Relationships: relationships,
		Topics:        topics,
		Confidence:    confidence,
	}, nil
}

// topicKeywords maps content keywords to their topic label.
var topicKeywords = map[string]string{
	"async":    "async-programming",
	"await":    "async-programming",
	"test":     "testing",
	"assert":   "testing",
	"api":      "api",
	"endpoint": "api",
	"database": "database",
	"sql":      "database",
	"frontend": "frontend",
	"react":    "frontend",
	"backend":  "backend",
	"server":   "backend",
	"recipe":   "recipe",
	"meeting":  "meeting",
	"finance":  "finance",
	"budget":   "finance",
}

func deriveTopics(entities []types.Entity, content string) []string {
	seen := make(map[string]bool)
	var topics []string

	for _, e := range entities {
		if e.Type == types.EntityTechnology {
			name := types.NormalizeEntityName(e.Name)
			if !seen[name] {
				seen[name] = true
				topics = append(topics, name)
			}
		}
	}

	lower := strings.ToLower(content)
	for kw, topic := range topicKeywords {
		if strings.Contains(lower, kw) && !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}

	sort.Strings(topics)
	return topics
}

// summarize takes the first non-empty, non-header content lines up to
// ~200-300 chars, truncated at the last space with an ellipsis.
func summarize(content string) string {
	const maxLen = 280

	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isHeaderLine(trimmed) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(trimmed)
		if b.Len() >= maxLen {
			break
		}
	}

	summary := b.String()
	if len(summary) <= maxLen {
		return summary
	}

	truncated := summary[:maxLen]
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}

func isHeaderLine(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	if strings.HasPrefix(line, "```") {
		return true
	}
	if strings.HasPrefix(line, "---") {
		return true
	}
	return false
}
