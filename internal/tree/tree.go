// Package tree implements ContextTree, the single owner of all
// ContextNodes and their id/path/domain indices.
package tree

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leefowlercu/memorizer/internal/errs"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// stopWords are dropped from search tokenization, matching the query engine's
// convention of small fixed word-lists for text normalization.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "and": {}, "or": {}, "is": {}, "are": {}, "with": {},
	"by": {}, "it": {}, "this": {}, "that": {}, "as": {}, "be": {}, "was": {},
}

// ContextTree owns all nodes and the three indices (id implicit via the
// nodes map, path, domain). All mutations require the exclusive lock;
// readers take the shared lock.
type ContextTree struct {
	mu          sync.RWMutex
	nodes       map[string]*types.ContextNode
	rootID      string
	pathIndex   map[string]string // path -> node id
	domainIndex map[string]string // lowercased domain name -> node id
}

// New creates a tree with a single Root node at depth 0.
func New() *ContextTree {
	t := &ContextTree{
		nodes:       make(map[string]*types.ContextNode),
		pathIndex:   make(map[string]string),
		domainIndex: make(map[string]string),
	}
	t.ensureRootLocked()
	return t
}

func (t *ContextTree) ensureRootLocked() {
	if t.rootID != "" {
		if _, ok := t.nodes[t.rootID]; ok {
			return
		}
	}
	root := &types.ContextNode{
		ID:          uuid.NewString(),
		Type:        types.NodeTypeRoot,
		Name:        "Root",
		Summary:     "User knowledge across 0 domains",
		Depth:       0,
		Confidence:  1,
		LastUpdated: time.Now(),
	}
	t.nodes[root.ID] = root
	t.rootID = root.ID
}

// EnsureRoot transparently recreates a Root node if the tree is missing
// one, used defensively after a lenient load.
func (t *ContextTree) EnsureRoot() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureRootLocked()
}

// RootID returns the tree's root node id.
func (t *ContextTree) RootID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootID
}

// NodeCount returns the number of nodes currently in the tree.
func (t *ContextTree) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Insert adds a node to the tree and its indices without linking it to
// a parent. Callers that want parent/child linkage should use AddChild.
func (t *ContextTree) Insert(node types.ContextNode) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(node)
}

func (t *ContextTree) insertLocked(node types.ContextNode) string {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	n := node
	t.nodes[n.ID] = &n
	if n.Type.HasPath() && n.Path != "" {
		t.pathIndex[n.Path] = n.ID
	}
	if n.Type == types.NodeTypeDomain {
		t.domainIndex[strings.ToLower(n.Name)] = n.ID
	}
	return n.ID
}

// Remove unlinks a node from its parent and removes it from every index.
// It does not recursively remove descendants.
func (t *ContextTree) Remove(id string) (*types.ContextNode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(id)
}

func (t *ContextTree) removeLocked(id string) (*types.ContextNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("remove node %q; %w", id, errs.ErrNotFound)
	}
	if n.ParentID != "" {
		if parent, ok := t.nodes[n.ParentID]; ok {
			parent.Children = removeString(parent.Children, id)
		}
	}
	if n.Path != "" {
		delete(t.pathIndex, n.Path)
	}
	if n.Type == types.NodeTypeDomain {
		delete(t.domainIndex, strings.ToLower(n.Name))
	}
	delete(t.nodes, id)
	return n, nil
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// AddChild sets child.ParentID/Depth, inserts it, and links it into the
// parent's Children. Fails with ErrNotFound if parent is absent.
func (t *ContextTree) AddChild(parentID string, child types.ContextNode) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentID]
	if !ok {
		return "", fmt.Errorf("add child under %q; %w", parentID, errs.ErrNotFound)
	}

	child.ParentID = parentID
	child.Depth = parent.Depth + 1
	id := t.insertLocked(child)
	parent.Children = append(parent.Children, id)
	return id, nil
}

// Get returns a copy of the node with the given id.
func (t *ContextTree) Get(id string) (types.ContextNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return types.ContextNode{}, false
	}
	return *n, true
}

// mutate runs fn against the live node under the exclusive lock. Used
// internally by packages that need to update summary/keywords/entities
// in place (agent, optimizer) without a full node replacement.
func (t *ContextTree) mutate(id string, fn func(*types.ContextNode)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("mutate node %q; %w", id, errs.ErrNotFound)
	}
	fn(n)
	n.LastUpdated = time.Now()
	return nil
}

// Mutate exposes mutate to other packages in this module (agent, optimizer)
// that must update a node's content under the tree's single-writer lock.
func (t *ContextTree) Mutate(id string, fn func(*types.ContextNode)) error {
	return t.mutate(id, fn)
}

// EnsureDomain returns the existing Domain child of root matching name
// case-insensitively, or creates one.
func (t *ContextTree) EnsureDomain(name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := strings.ToLower(name)
	if id, ok := t.domainIndex[key]; ok {
		return id
	}

	root := t.nodes[t.rootID]
	domain := types.ContextNode{
		ID:          uuid.NewString(),
		Type:        types.NodeTypeDomain,
		Name:        name,
		Depth:       root.Depth + 1,
		ParentID:    t.rootID,
		Confidence:  1,
		LastUpdated: time.Now(),
	}
	id := t.insertLocked(domain)
	root.Children = append(root.Children, id)
	return id
}

// EnsureCategory returns the existing Category child of domainID matching
// name case-insensitively, or creates one.
func (t *ContextTree) EnsureCategory(domainID, name string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	domain, ok := t.nodes[domainID]
	if !ok {
		return "", fmt.Errorf("ensure category under %q; %w", domainID, errs.ErrNotFound)
	}

	key := strings.ToLower(name)
	for _, cid := range domain.Children {
		c, ok := t.nodes[cid]
		if ok && c.Type == types.NodeTypeCategory && strings.ToLower(c.Name) == key {
			return cid, nil
		}
	}

	category := types.ContextNode{
		ID:          uuid.NewString(),
		Type:        types.NodeTypeCategory,
		Name:        name,
		Depth:       domain.Depth + 1,
		ParentID:    domainID,
		Confidence:  1,
		LastUpdated: time.Now(),
	}
	id := t.insertLocked(category)
	domain.Children = append(domain.Children, id)
	return id, nil
}

// ApplyDomainDetection ensures the detected domain (and category, if any)
// exist, then adds projectNode as a child of that parent.
func (t *ContextTree) ApplyDomainDetection(projectNode types.ContextNode, detection types.DomainDetection) (string, error) {
	domainID := t.EnsureDomain(detection.Domain)
	parentID := domainID
	if detection.Subcategory != "" {
		catID, err := t.EnsureCategory(domainID, detection.Subcategory)
		if err != nil {
			return "", err
		}
		parentID = catID
	}
	return t.AddChild(parentID, projectNode)
}

// GetAncestry returns [Root, ..., id]. Terminates defensively on a
// missing parent or a cycle.
func (t *ContextTree) GetAncestry(id string) ([]types.ContextNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getAncestryLocked(id)
}

func (t *ContextTree) getAncestryLocked(id string) ([]types.ContextNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("get ancestry of %q; %w", id, errs.ErrNotFound)
	}

	var chain []types.ContextNode
	seen := make(map[string]struct{})
	cur := n
	for {
		if _, looped := seen[cur.ID]; looped {
			break
		}
		seen[cur.ID] = struct{}{}
		chain = append(chain, *cur)
		if cur.ParentID == "" {
			break
		}
		p, ok := t.nodes[cur.ParentID]
		if !ok {
			break
		}
		cur = p
	}

	// reverse to [Root, ..., id]
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// GetDescendants returns all descendants of id via DFS, excluding id itself.
func (t *ContextTree) GetDescendants(id string) []types.ContextNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getDescendantsLocked(id)
}

func (t *ContextTree) getDescendantsLocked(id string) []types.ContextNode {
	var out []types.ContextNode
	n, ok := t.nodes[id]
	if !ok {
		return out
	}
	var stack []string
	stack = append(stack, n.Children...)
	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, ok := t.nodes[cid]
		if !ok {
			continue
		}
		out = append(out, *c)
		stack = append(stack, c.Children...)
	}
	return out
}

// NodesAtDepth returns all nodes with the given depth.
func (t *ContextTree) NodesAtDepth(d int) []types.ContextNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []types.ContextNode
	for _, n := range t.nodes {
		if n.Depth == d {
			out = append(out, *n)
		}
	}
	return out
}

// GetLeaves returns all nodes with no children.
func (t *ContextTree) GetLeaves() []types.ContextNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []types.ContextNode
	for _, n := range t.nodes {
		if len(n.Children) == 0 {
			out = append(out, *n)
		}
	}
	return out
}

// MaxDepth returns the greatest depth among all nodes.
func (t *ContextTree) MaxDepth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	max := 0
	for _, n := range t.nodes {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}

// GetByPath returns the node registered at path, if any.
func (t *ContextTree) GetByPath(path string) (types.ContextNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.pathIndex[path]
	if !ok {
		return types.ContextNode{}, false
	}
	n := t.nodes[id]
	return *n, true
}

// GetDomainContext resolves a domain by name and returns it with its
// descendants, folding the lookup and traversal into a single call for
// callers that would otherwise chain them.
func (t *ContextTree) GetDomainContext(name string) (types.ContextNode, []types.ContextNode, error) {
	t.mu.RLock()
	id, ok := t.domainIndex[strings.ToLower(name)]
	t.mu.RUnlock()
	if !ok {
		return types.ContextNode{}, nil, fmt.Errorf("domain %q; %w", name, errs.ErrNotFound)
	}
	n, _ := t.Get(id)
	return n, t.GetDescendants(id), nil
}

// GetFileContext resolves a node by path and returns it with its ancestry,
// folding lookup and ancestry into one call. Related nodes are not resolved.
func (t *ContextTree) GetFileContext(path string) (types.ContextNode, []types.ContextNode, error) {
	n, ok := t.GetByPath(path)
	if !ok {
		return types.ContextNode{}, nil, fmt.Errorf("path %q; %w", path, errs.ErrNotFound)
	}
	ancestry, err := t.GetAncestry(n.ID)
	return n, ancestry, err
}

// BuildCrossLinks links nodes in different branches that share a
// Technology entity with reciprocal SameTechnology edges.
func (t *ContextTree) BuildCrossLinks() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	// technology name (normalized) -> node ids mentioning it
	byTech := make(map[string][]string)
	for id, n := range t.nodes {
		for _, e := range n.Entities {
			if e.Type == types.EntityTechnology {
				byTech[e.NormalizedName] = append(byTech[e.NormalizedName], id)
			}
		}
	}

	created := 0
	for _, ids := range byTech {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				if a == b {
					continue
				}
				if t.onSameBranchLocked(a, b) {
					continue
				}
				if t.linkExistsLocked(a, b) {
					continue
				}
				t.addRelatedLocked(a, b, types.CrossLinkSameTechnology, 0.7)
				t.addRelatedLocked(b, a, types.CrossLinkSameTechnology, 0.7)
				created++
			}
		}
	}
	return created
}

func (t *ContextTree) linkExistsLocked(a, b string) bool {
	n, ok := t.nodes[a]
	if !ok {
		return false
	}
	for _, r := range n.RelatedNodes {
		if r.NodeID == b && r.LinkType == types.CrossLinkSameTechnology {
			return true
		}
	}
	return false
}

func (t *ContextTree) addRelatedLocked(from, to string, linkType types.CrossLinkType, strength float64) {
	n := t.nodes[from]
	if n == nil || from == to {
		return
	}
	n.RelatedNodes = append(n.RelatedNodes, types.RelatedNode{
		NodeID:   to,
		LinkType: linkType,
		Strength: strength,
	})
}

// onSameBranchLocked reports whether a is an ancestor of b or vice versa.
func (t *ContextTree) onSameBranchLocked(a, b string) bool {
	return t.isAncestorLocked(a, b) || t.isAncestorLocked(b, a)
}

func (t *ContextTree) isAncestorLocked(ancestor, id string) bool {
	seen := make(map[string]struct{})
	cur, ok := t.nodes[id]
	if !ok {
		return false
	}
	for cur.ParentID != "" {
		if _, looped := seen[cur.ID]; looped {
			return false
		}
		seen[cur.ID] = struct{}{}
		if cur.ParentID == ancestor {
			return true
		}
		parent, ok := t.nodes[cur.ParentID]
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}

// searchResult pairs a node with its match score for sorting.
type searchResult struct {
	node  types.ContextNode
	score int
}

// Search tokenizes q, drops stop-words and 1-char tokens, and returns
// matching nodes ordered by descending score.
func (t *ContextTree) Search(q string) []types.ContextNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tokens := tokenize(q)
	if len(tokens) == 0 {
		return t.fallbackSearchLocked()
	}

	var results []searchResult
	for _, n := range t.nodes {
		score := 0
		matched := make(map[string]struct{})
		haystacks := []string{strings.ToLower(n.Name), strings.ToLower(n.Summary)}
		for _, kw := range n.Keywords {
			haystacks = append(haystacks, strings.ToLower(kw))
		}
		for _, tok := range tokens {
			if _, already := matched[tok]; already {
				continue
			}
			for _, h := range haystacks {
				if strings.Contains(h, tok) {
					matched[tok] = struct{}{}
					break
				}
			}
		}
		score = len(matched)
		if score > 0 {
			results = append(results, searchResult{node: *n, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]types.ContextNode, len(results))
	for i, r := range results {
		out[i] = r.node
	}
	return out
}

// fallbackSearchLocked returns up to 10 Project/Document nodes when no
// meaningful tokens survive tokenization.
func (t *ContextTree) fallbackSearchLocked() []types.ContextNode {
	var out []types.ContextNode
	for _, n := range t.nodes {
		if n.Type == types.NodeTypeProject || n.Type == types.NodeTypeDocument {
			out = append(out, *n)
			if len(out) >= 10 {
				break
			}
		}
	}
	return out
}

func tokenize(q string) []string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) <= 1 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Snapshot returns every node in the tree, used by persistence to
// serialize the tree.
func (t *ContextTree) Snapshot() []types.ContextNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.ContextNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, *n)
	}
	return out
}

// LoadFrom replaces the tree's contents wholesale, used by treestore on
// load. rootID must be present in nodes or the caller should call
// EnsureRoot afterwards.
func (t *ContextTree) LoadFrom(rootID string, nodes []types.ContextNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make(map[string]*types.ContextNode, len(nodes))
	t.pathIndex = make(map[string]string)
	t.domainIndex = make(map[string]string)
	t.rootID = rootID

	for _, n := range nodes {
		cp := n
		t.nodes[cp.ID] = &cp
		if cp.Type.HasPath() && cp.Path != "" {
			t.pathIndex[cp.Path] = cp.ID
		}
		if cp.Type == types.NodeTypeDomain {
			t.domainIndex[strings.ToLower(cp.Name)] = cp.ID
		}
	}
}

// RebuildDomainIndex recomputes the domain index by scanning all nodes,
// used when a loaded domain_index is absent or inconsistent.
func (t *ContextTree) RebuildDomainIndex() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.domainIndex = make(map[string]string)
	for id, n := range t.nodes {
		if n.Type == types.NodeTypeDomain {
			t.domainIndex[strings.ToLower(n.Name)] = id
		}
	}
}

// DomainIndexSnapshot returns a copy of the domain_index for persistence.
func (t *ContextTree) DomainIndexSnapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.domainIndex))
	for k, v := range t.domainIndex {
		out[k] = v
	}
	return out
}
