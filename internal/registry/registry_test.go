package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leefowlercu/memorizer/internal/testutil"
)

func openTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	reg, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	state := FileState{
		Path:       "/tmp/project/README.md",
		Size:       120,
		ModTime:    time.Now().Truncate(time.Second),
		Hash:       "sha256:abc",
		Extension:  "md",
		MimeType:   "text/markdown",
		LastSeenAt: time.Now().Truncate(time.Second),
	}

	if err := reg.UpsertFileState(ctx, state); err != nil {
		t.Fatalf("UpsertFileState: %v", err)
	}

	got, err := reg.GetFileState(ctx, state.Path)
	if err != nil {
		t.Fatalf("GetFileState: %v", err)
	}
	if got.Hash != state.Hash || got.Size != state.Size {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestRegistry_UpsertUpdatesExisting(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	state := FileState{Path: "/tmp/a.txt", Size: 10, ModTime: time.Now(), Hash: "h1", LastSeenAt: time.Now()}
	if err := reg.UpsertFileState(ctx, state); err != nil {
		t.Fatalf("UpsertFileState: %v", err)
	}

	state.Size = 20
	state.Hash = "h2"
	if err := reg.UpsertFileState(ctx, state); err != nil {
		t.Fatalf("UpsertFileState (update): %v", err)
	}

	got, err := reg.GetFileState(ctx, state.Path)
	if err != nil {
		t.Fatalf("GetFileState: %v", err)
	}
	if got.Size != 20 || got.Hash != "h2" {
		t.Fatalf("expected updated state, got %+v", got)
	}
}

func TestRegistry_GetFileState_NotFound(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.GetFileState(context.Background(), "/nope")
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

func TestRegistry_ListAndDeleteUnderRoot(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	paths := []string{
		"/tmp/project/a.md",
		"/tmp/project/sub/b.md",
		"/tmp/other/c.md",
	}
	for _, p := range paths {
		if err := reg.UpsertFileState(ctx, FileState{Path: p, Hash: "h", ModTime: time.Now(), LastSeenAt: time.Now()}); err != nil {
			t.Fatalf("UpsertFileState(%s): %v", p, err)
		}
	}

	states, err := reg.ListFileStates(ctx, "/tmp/project")
	if err != nil {
		t.Fatalf("ListFileStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states under /tmp/project, got %d", len(states))
	}

	n, err := reg.DeleteFileStatesUnder(ctx, "/tmp/project")
	if err != nil {
		t.Fatalf("DeleteFileStatesUnder: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}

	if _, err := reg.GetFileState(ctx, "/tmp/other/c.md"); err != nil {
		t.Fatalf("expected unrelated path to survive, got err %v", err)
	}
}

func TestRegistry_OpensAtConfiguredPath(t *testing.T) {
	env := testutil.NewTestEnv(t)

	reg, err := Open(context.Background(), env.RegistryPath())
	if err != nil {
		t.Fatalf("Open at configured path: %v", err)
	}
	defer reg.Close()

	if err := reg.UpsertFileState(context.Background(), FileState{Path: "/x/y.md", Hash: "h", ModTime: time.Now(), LastSeenAt: time.Now()}); err != nil {
		t.Fatalf("UpsertFileState: %v", err)
	}
	if _, err := os.Stat(env.RegistryPath()); err != nil {
		t.Fatalf("registry database not created at configured path: %v", err)
	}
}

func TestFileState_Changed(t *testing.T) {
	now := time.Now()
	a := FileState{Size: 10, ModTime: now}
	b := FileState{Size: 10, ModTime: now}
	if a.Changed(b) {
		t.Fatalf("expected identical states to not be changed")
	}

	b.Size = 11
	if !a.Changed(b) {
		t.Fatalf("expected differing size to be changed")
	}
}
