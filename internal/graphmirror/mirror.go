// Package graphmirror maintains an optional, write-only FalkorDB copy of the
// knowledge tree so it can be explored with Cypher queries and graph tooling
// that the tree's own JSON persistence doesn't support. It never reads the
// tree back; treestore remains the source of truth on restart.
package graphmirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"

	"github.com/leefowlercu/memorizer/pkg/types"
)

// Node labels mirrored from pkg/types.NodeType.
const (
	LabelDomain        = "Domain"
	LabelCategory      = "Category"
	LabelProject       = "Project"
	LabelModule        = "Module"
	LabelDocument      = "Document"
	LabelFileReference = "FileReference"
)

// Relationship types mirrored from the tree's parent/child and cross-link edges.
const (
	RelContains       = "CONTAINS"        // parent -> child
	RelRelatedTo      = "RELATED_TO"      // generic cross-link
	RelSameTechnology = "SAME_TECHNOLOGY" // types.CrossLinkSameTechnology
)

// Config contains FalkorDB connection configuration.
type Config struct {
	Host           string
	Port           int
	GraphName      string
	PasswordEnv    string
	MaxRetries     int
	RetryDelay     time.Duration
	WriteQueueSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           6379,
		GraphName:      "memorizer",
		PasswordEnv:    "MEMORIZER_GRAPHMIRROR_PASSWORD",
		MaxRetries:     3,
		RetryDelay:     time.Second,
		WriteQueueSize: 1000,
	}
}

// Mirror is a write-only FalkorDB projection of a tree.ContextTree, fed
// incrementally by the orchestrator/watcher as nodes are created or updated.
// Writes are best-effort: a disconnected or failing mirror never blocks or
// fails the operation that's indexing the authoritative tree.
type Mirror struct {
	mu     sync.RWMutex
	config Config
	logger *slog.Logger

	db    *falkordb.FalkorDB
	graph *falkordb.Graph

	connected bool

	writeQueue chan string
	wg         sync.WaitGroup
	stopChan   chan struct{}
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithConfig sets the connection configuration.
func WithConfig(cfg Config) Option {
	return func(m *Mirror) { m.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) { m.logger = logger }
}

// New creates a Mirror. Call Start to establish the connection.
func New(opts ...Option) *Mirror {
	m := &Mirror{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.config.WriteQueueSize <= 0 {
		m.config.WriteQueueSize = DefaultConfig().WriteQueueSize
	}
	m.writeQueue = make(chan string, m.config.WriteQueueSize)

	return m
}

// Start connects to FalkorDB and begins draining the write queue. A failed
// connection is logged and treated as permanently disconnected; callers keep
// running with the mirror silently disabled rather than failing startup.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil
	}

	connOpt := &falkordb.ConnectionOption{
		Addr: fmt.Sprintf("%s:%d", m.config.Host, m.config.Port),
	}
	if m.config.PasswordEnv != "" {
		connOpt.Password = os.Getenv(m.config.PasswordEnv)
	}

	db, err := falkordb.FalkorDBNew(connOpt)
	if err != nil {
		m.logger.Warn("graphmirror disabled: connecting to FalkorDB failed", "error", err)
		return nil
	}

	m.db = db
	m.graph = db.SelectGraph(m.config.GraphName)
	m.connected = true

	m.wg.Add(1)
	go m.drain()

	m.logger.Info("graphmirror connected", "host", m.config.Host, "port", m.config.Port, "graph", m.config.GraphName)
	return nil
}

// Stop drains pending writes (bounded by ctx) and closes the connection.
func (m *Mirror) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	close(m.stopChan)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("graphmirror write queue drain timed out")
	}

	if m.db != nil {
		m.db.Conn.Close()
	}
	m.connected = false
	m.logger.Info("graphmirror disconnected")
	return nil
}

func (m *Mirror) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mirror) drain() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopChan:
			for {
				select {
				case q := <-m.writeQueue:
					m.execute(q)
				default:
					return
				}
			}
		case q := <-m.writeQueue:
			m.execute(q)
		}
	}
}

func (m *Mirror) execute(query string) {
	var err error
	for i := 0; i <= m.config.MaxRetries; i++ {
		_, err = m.graph.Query(query, nil, nil)
		if err == nil {
			return
		}
		if i < m.config.MaxRetries {
			time.Sleep(m.config.RetryDelay * time.Duration(1<<i))
		}
	}
	m.logger.Error("graphmirror write failed after retries", "error", err)
}

func (m *Mirror) enqueue(query string) {
	if !m.IsConnected() {
		return
	}
	select {
	case m.writeQueue <- query:
	default:
		m.logger.Warn("graphmirror write queue full, dropping write")
	}
}

// labelFor maps a node type to its mirrored label.
func labelFor(t types.NodeType) string {
	switch t {
	case types.NodeTypeDomain:
		return LabelDomain
	case types.NodeTypeCategory:
		return LabelCategory
	case types.NodeTypeProject:
		return LabelProject
	case types.NodeTypeModule:
		return LabelModule
	case types.NodeTypeDocument:
		return LabelDocument
	case types.NodeTypeFileReference:
		return LabelFileReference
	default:
		return "Node"
	}
}

// UpsertNode mirrors a single ContextNode and its edge to its parent (if any).
func (m *Mirror) UpsertNode(n types.ContextNode) {
	if !m.IsConnected() {
		return
	}

	label := labelFor(n.Type)
	query := fmt.Sprintf(`
		MERGE (x:%s {id: '%s'})
		SET x.name = '%s',
			x.summary = '%s',
			x.path = '%s',
			x.depth = %d,
			x.confidence = %f,
			x.keywords = %s,
			x.access_count = %d,
			x.updated_at = %d
	`, label,
		escape(n.ID),
		escape(n.Name),
		escape(n.Summary),
		escape(n.Path),
		n.Depth,
		n.Confidence,
		formatStringArray(n.Keywords),
		n.AccessCount,
		time.Now().Unix())
	m.enqueue(query)

	if n.ParentID != "" {
		relQuery := fmt.Sprintf(`
			MATCH (p {id: '%s'})
			MATCH (c:%s {id: '%s'})
			MERGE (p)-[:%s]->(c)
		`, escape(n.ParentID), label, escape(n.ID), RelContains)
		m.enqueue(relQuery)
	}

	for _, rel := range n.RelatedNodes {
		relType := RelRelatedTo
		if rel.LinkType == types.CrossLinkSameTechnology {
			relType = RelSameTechnology
		}
		relQuery := fmt.Sprintf(`
			MATCH (a {id: '%s'})
			MATCH (b {id: '%s'})
			MERGE (a)-[r:%s]->(b)
			SET r.strength = %f, r.reason = '%s'
		`, escape(n.ID), escape(rel.NodeID), relType, rel.Strength, escape(rel.Reason))
		m.enqueue(relQuery)
	}
}

// DeleteNode removes a mirrored node and its relationships.
func (m *Mirror) DeleteNode(id string) {
	if !m.IsConnected() {
		return
	}
	query := fmt.Sprintf(`
		MATCH (x {id: '%s'})
		DETACH DELETE x
	`, escape(id))
	m.enqueue(query)
}

func formatStringArray(arr []string) string {
	if len(arr) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(arr))
	for _, s := range arr {
		parts = append(parts, fmt.Sprintf("'%s'", escape(s)))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// escape escapes single quotes and backslashes for Cypher string literals.
func escape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
