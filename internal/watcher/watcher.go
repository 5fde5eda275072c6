// Package watcher turns a set of DirectoryConfig entries into a stream of
// FileEvents, using fsnotify for Realtime watches and a periodic rescan
// for Scheduled ones; Manual ones change only through Rescan.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leefowlercu/memorizer/internal/fsutil"
	"github.com/leefowlercu/memorizer/internal/registry"
	"github.com/leefowlercu/memorizer/internal/walker"
)

// StateStore persists per-file scan state across restarts so the first
// Rescan after startup reports genuine changes instead of re-discovering
// every file as new. internal/registry's SQLiteRegistry implements it.
type StateStore interface {
	UpsertFileState(ctx context.Context, state registry.FileState) error
	DeleteFileState(ctx context.Context, path string) error
	ListFileStates(ctx context.Context, rootPath string) ([]registry.FileState, error)
}

// WatchMode selects how a directory is kept in sync.
type WatchMode int

const (
	// Realtime watches the directory recursively via fsnotify.
	Realtime WatchMode = iota
	// Scheduled rescans the directory on a fixed interval.
	Scheduled
	// Manual only rescans when explicitly requested.
	Manual
)

func (m WatchMode) String() string {
	switch m {
	case Realtime:
		return "realtime"
	case Scheduled:
		return "scheduled"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// DirectoryConfig describes one directory under watch.
type DirectoryConfig struct {
	Path            string
	Enabled         bool
	Mode            WatchMode
	ExcludePatterns []string
	Priority        int
	MaxDepth        *int
	FollowSymlinks  bool
	// RescanInterval applies to Scheduled mode.
	RescanInterval time.Duration
}

// EventKind enumerates the kinds of filesystem change a FileEvent reports.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	RenamedFrom
	RenamedTo
	MetadataChanged
	Accessed
	Unknown
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case RenamedFrom:
		return "renamed_from"
	case RenamedTo:
		return "renamed_to"
	case MetadataChanged:
		return "metadata_changed"
	case Accessed:
		return "accessed"
	default:
		return "unknown"
	}
}

// FileAttributes carries cheap metadata about a path at event time. Image
// dimensions are filled in for decodable image formats only.
type FileAttributes struct {
	IsFile      bool
	IsDirectory bool
	Size        *int64
	Extension   *string
	MIMEType    *string
	ImageWidth  *int
	ImageHeight *int
}

// FileEvent is the unit delivered by a Watcher.
type FileEvent struct {
	Kind       EventKind
	Path       string
	Timestamp  time.Time
	Attributes FileAttributes
}

// ScanResult reports how many files changed during an Indexer.scan().
type ScanResult struct {
	New     int
	Updated int
	Removed int
}

// Watcher emits FileEvents for a set of configured directories.
type Watcher interface {
	Watch(cfg DirectoryConfig) error
	Unwatch(path string) error
	WatchedPaths() []string
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan FileEvent
	Rescan(path string) (ScanResult, error)
}

type directoryState struct {
	cfg     DirectoryConfig
	known   map[string]walker.Entry // relPath -> entry, for scan() diffing
	ticker  *time.Ticker
	stopped chan struct{}
}

// fsWatcher is the fsnotify-backed implementation of Watcher.
type fsWatcher struct {
	logger *slog.Logger

	debounceWindow    time.Duration
	deleteGracePeriod time.Duration

	mu   sync.Mutex
	dirs map[string]*directoryState
	fsn  *fsnotify.Watcher

	coalescer *Coalescer
	events    chan FileEvent

	stateStore StateStore

	wg      sync.WaitGroup
	stopped bool
}

// Option configures a Watcher at construction time.
type Option func(*fsWatcher)

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *fsWatcher) { w.logger = logger }
}

// WithDebounceWindow sets the debounce delay applied to create/modify events.
func WithDebounceWindow(d time.Duration) Option {
	return func(w *fsWatcher) { w.debounceWindow = d }
}

// WithDeleteGracePeriod sets the delay before a delete event is emitted,
// allowing a rapid delete+recreate to collapse into a single modify.
func WithDeleteGracePeriod(d time.Duration) Option {
	return func(w *fsWatcher) { w.deleteGracePeriod = d }
}

// WithStateStore persists scan state to store, keeping Rescan incremental
// across process restarts.
func WithStateStore(store StateStore) Option {
	return func(w *fsWatcher) { w.stateStore = store }
}

// New constructs a Watcher. Callers must call Start before any events flow,
// and Stop to release the underlying fsnotify handle.
func New(opts ...Option) (Watcher, error) {
	fsn, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher; %w", err)
	}

	w := &fsWatcher{
		logger:            slog.Default(),
		debounceWindow:    300 * time.Millisecond,
		deleteGracePeriod: 500 * time.Millisecond,
		dirs:              make(map[string]*directoryState),
		fsn:               fsn,
		events:            make(chan FileEvent, 256),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.coalescer = NewCoalescer(w.debounceWindow, w.deleteGracePeriod)

	return w, nil
}

func (w *fsWatcher) Events() <-chan FileEvent {
	return w.events
}

// Watch registers cfg. For Realtime mode, it recursively adds fsnotify
// watches rooted at cfg.Path. Scheduled mode starts a ticking rescan loop.
// Manual mode only records the config for later Rescan calls.
func (w *fsWatcher) Watch(cfg DirectoryConfig) error {
	if !cfg.Enabled {
		return nil
	}

	root, err := filepath.Abs(cfg.Path)
	if err != nil {
		return fmt.Errorf("resolving watch path; %w", err)
	}
	cfg.Path = root

	state := &directoryState{cfg: cfg, known: make(map[string]walker.Entry), stopped: make(chan struct{})}
	w.loadKnownState(root, state)

	w.mu.Lock()
	w.dirs[root] = state
	w.mu.Unlock()

	switch cfg.Mode {
	case Realtime:
		if err := w.addRecursive(root, cfg); err != nil {
			return fmt.Errorf("registering realtime watch on %s; %w", root, err)
		}
	case Scheduled:
		interval := cfg.RescanInterval
		if interval <= 0 {
			interval = time.Minute
		}
		state.ticker = time.NewTicker(interval)
		w.wg.Add(1)
		go w.scheduledLoop(root, state)
	case Manual:
		// no background activity; Rescan is the only entry point
	}

	return nil
}

func (w *fsWatcher) addRecursive(root string, cfg DirectoryConfig) error {
	maxDepth := -1
	if cfg.MaxDepth != nil {
		maxDepth = *cfg.MaxDepth
	}

	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}
		if walker.IsExcluded(p, cfg.ExcludePatterns) {
			return filepath.SkipDir
		}
		if maxDepth >= 0 && depth > maxDepth {
			return filepath.SkipDir
		}
		if err := w.fsn.Add(p); err != nil {
			if isWatchLimitError(err) {
				w.logger.Warn("hit OS watch limit, directory will not be monitored in realtime", "path", p, "error", err)
				return filepath.SkipDir
			}
			return nil
		}
		return nil
	})
}

// Unwatch removes a previously watched directory.
func (w *fsWatcher) Unwatch(path string) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving unwatch path; %w", err)
	}

	w.mu.Lock()
	state, ok := w.dirs[root]
	if ok {
		delete(w.dirs, root)
	}
	w.mu.Unlock()

	if !ok {
		return nil
	}
	if state.ticker != nil {
		state.ticker.Stop()
		close(state.stopped)
	}

	for _, watched := range w.fsn.WatchList() {
		if watched == root || strings.HasPrefix(watched, root+string(filepath.Separator)) {
			_ = w.fsn.Remove(watched)
		}
	}

	return nil
}

// WatchedPaths returns the currently registered directory roots.
func (w *fsWatcher) WatchedPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.dirs))
	for p := range w.dirs {
		paths = append(paths, p)
	}
	return paths
}

// Start begins translating fsnotify and coalescer output into FileEvents.
// Call Stop to shut the background loops down.
func (w *fsWatcher) Start(ctx context.Context) error {
	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.drainCoalesced(ctx)
	return nil
}

func (w *fsWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsn.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.fsn.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *fsWatcher) handleFsEvent(ev fsnotify.Event) {
	if isEditorNoise(ev.Name) {
		return
	}

	cfg, ok := w.configFor(ev.Name)
	if ok && walker.IsExcluded(ev.Name, cfg.ExcludePatterns) {
		return
	}

	var ct CoalescedEventType
	switch {
	case ev.Op&fsnotify.Create != 0:
		ct = EventCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && ok {
			w.addRecursive(ev.Name, cfg)
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		ct = EventDelete
	case ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		ct = EventModify
	default:
		return
	}

	w.coalescer.Add(CoalescedEvent{Path: ev.Name, Type: ct, Timestamp: time.Now()})
}

func (w *fsWatcher) configFor(path string) (DirectoryConfig, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, state := range w.dirs {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return state.cfg, true
		}
	}
	return DirectoryConfig{}, false
}

func (w *fsWatcher) drainCoalesced(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ce, ok := <-w.coalescer.Events():
			if !ok {
				return
			}
			w.publish(ce)
		}
	}
}

func (w *fsWatcher) publish(ce CoalescedEvent) {
	kind := Modified
	switch ce.Type {
	case EventCreate:
		kind = Created
	case EventDelete:
		kind = Deleted
	case EventModify:
		kind = Modified
	}

	attrs := FileAttributes{}
	if kind != Deleted {
		if info, err := os.Stat(ce.Path); err == nil {
			attrs.IsFile = !info.IsDir()
			attrs.IsDirectory = info.IsDir()
			if attrs.IsFile {
				size := info.Size()
				attrs.Size = &size
				ext := filepath.Ext(ce.Path)
				attrs.Extension = &ext
				mime := fsutil.MIMEFromExtension(ext)
				attrs.MIMEType = &mime
				if fsutil.IsImageExtension(ext) {
					if w, h, ok := fsutil.ImageDimensions(ce.Path); ok {
						attrs.ImageWidth = &w
						attrs.ImageHeight = &h
					}
				}
			}
		}
	}

	event := FileEvent{Kind: kind, Path: ce.Path, Timestamp: ce.Timestamp, Attributes: attrs}
	select {
	case w.events <- event:
	default:
		w.logger.Warn("dropping file event, channel full", "path", ce.Path)
	}
}

func (w *fsWatcher) scheduledLoop(root string, state *directoryState) {
	defer w.wg.Done()
	for {
		select {
		case <-state.stopped:
			return
		case <-state.ticker.C:
			if _, err := w.Rescan(root); err != nil {
				w.logger.Error("scheduled rescan failed", "path", root, "error", err)
			}
		}
	}
}

// Rescan implements the Indexer's scan(): it walks the configured
// directory, diffs the current file set against the last known one, and
// emits FileEvents plus a {new, updated, removed} summary.
func (w *fsWatcher) Rescan(path string) (ScanResult, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return ScanResult{}, fmt.Errorf("resolving rescan path; %w", err)
	}

	w.mu.Lock()
	state, ok := w.dirs[root]
	w.mu.Unlock()
	if !ok {
		return ScanResult{}, fmt.Errorf("path not watched: %s", root)
	}

	entries, err := walker.Walk(root, walker.Options{
		MaxDepth:        state.cfg.MaxDepth,
		FollowSymlinks:  state.cfg.FollowSymlinks,
		ExcludePatterns: state.cfg.ExcludePatterns,
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("scanning %s; %w", root, err)
	}

	current := make(map[string]walker.Entry, len(entries))
	for _, e := range entries {
		current[e.RelPath] = e
	}

	var result ScanResult
	now := time.Now()

	for rel, e := range current {
		prev, existed := state.known[rel]
		if !existed {
			result.New++
			w.emitScanEvent(Created, e, now)
			continue
		}
		if prev.Size != e.Size || prev.ModTime != e.ModTime {
			result.Updated++
			w.emitScanEvent(Modified, e, now)
		}
	}
	for rel, e := range state.known {
		if _, stillPresent := current[rel]; !stillPresent {
			result.Removed++
			w.emitScanEvent(Deleted, e, now)
		}
	}

	w.mu.Lock()
	previous := state.known
	state.known = current
	w.mu.Unlock()

	w.persistScanState(previous, current, now)

	return result, nil
}

// loadKnownState seeds a directory's known-file map from the state store,
// so the first Rescan diffs against the previous run instead of an empty
// set.
func (w *fsWatcher) loadKnownState(root string, state *directoryState) {
	if w.stateStore == nil {
		return
	}

	states, err := w.stateStore.ListFileStates(context.Background(), root)
	if err != nil {
		w.logger.Warn("loading persisted scan state failed", "path", root, "error", err)
		return
	}

	for _, s := range states {
		rel, err := filepath.Rel(root, s.Path)
		if err != nil {
			continue
		}
		state.known[rel] = walker.Entry{
			Path:      s.Path,
			RelPath:   rel,
			Size:      s.Size,
			ModTime:   s.ModTime.Unix(),
			Extension: s.Extension,
		}
	}
}

// persistScanState writes the scan diff through to the state store.
func (w *fsWatcher) persistScanState(previous, current map[string]walker.Entry, now time.Time) {
	if w.stateStore == nil {
		return
	}

	ctx := context.Background()

	for rel, e := range current {
		prev, existed := previous[rel]
		if existed && prev.Size == e.Size && prev.ModTime == e.ModTime {
			continue
		}
		fs := registry.FileState{
			Path:       e.Path,
			Size:       e.Size,
			ModTime:    time.Unix(e.ModTime, 0),
			Extension:  e.Extension,
			MimeType:   fsutil.MIMEFromExtension(e.Extension),
			LastSeenAt: now,
		}
		if err := w.stateStore.UpsertFileState(ctx, fs); err != nil {
			w.logger.Warn("persisting file state failed", "path", e.Path, "error", err)
		}
	}

	for rel, e := range previous {
		if _, still := current[rel]; still {
			continue
		}
		if err := w.stateStore.DeleteFileState(ctx, e.Path); err != nil {
			w.logger.Warn("removing file state failed", "path", e.Path, "error", err)
		}
	}
}

func (w *fsWatcher) emitScanEvent(kind EventKind, e walker.Entry, ts time.Time) {
	size := e.Size
	ext := e.Extension
	mime := fsutil.MIMEFromExtension(e.Extension)
	attrs := FileAttributes{IsFile: true}
	if kind != Deleted {
		attrs.Size = &size
		attrs.Extension = &ext
		attrs.MIMEType = &mime
	}

	select {
	case w.events <- FileEvent{Kind: kind, Path: e.Path, Timestamp: ts, Attributes: attrs}:
	default:
	}
}

// Stop halts all background loops and closes the event channel.
func (w *fsWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for _, state := range w.dirs {
		if state.ticker != nil {
			state.ticker.Stop()
			close(state.stopped)
		}
	}
	w.mu.Unlock()

	w.coalescer.Stop()
	err := w.fsn.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

// isWatchLimitError reports whether err indicates the OS-level inotify
// watch limit (or an analogous resource limit) has been exhausted.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "too many open files") ||
		strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "user limit on total number of inotify watches")
}

// isEditorNoise reports whether path is a transient editor artifact that
// would otherwise generate a churn of spurious events.
func isEditorNoise(path string) bool {
	name := filepath.Base(path)

	if strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".swo") || strings.HasSuffix(name, ".swn") {
		return true
	}
	if name == "4913" {
		return true // vim probes writability with this literal temp file
	}
	if strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#") {
		return true
	}
	if strings.HasSuffix(name, "~") {
		return true
	}

	return false
}
