package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", name, err)
	}
}

func TestOrchestrator_ProcessFolder_CodingDomain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")
	writeFile(t, dir, "README.md", "# Demo\n\nThis project uses Go and PostgreSQL.\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	result, err := orch.ProcessFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	if result.Domain != "coding" {
		t.Errorf("domain = %q, want coding", result.Domain)
	}
	if result.FilesProcessed != 2 {
		t.Errorf("files processed = %d, want 2", result.FilesProcessed)
	}
	if result.NodesCreated == 0 {
		t.Errorf("expected nodes created > 0")
	}
	if result.RootNodeID == "" {
		t.Errorf("expected root node id to be set")
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestOrchestrator_ProcessFolder_CountsRelationships(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "NOTES.md", "acme-service uses Rust and PostgreSQL.\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	result, err := orch.ProcessFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	if result.EntitiesExtracted == 0 {
		t.Fatal("expected entities from the technology dictionary")
	}
	if result.RelationshipsExtracted == 0 {
		t.Error("expected relationships between co-mentioned technologies")
	}
}

func TestOrchestrator_ProcessFolder_NotFound(t *testing.T) {
	tr := tree.New()
	orch := New(tr, DefaultConfig())

	_, err := orch.ProcessFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatalf("expected error for missing folder")
	}
}

func TestOrchestrator_ProcessFolder_RootSummary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "import os\nprint('hi')\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	if _, err := orch.ProcessFolder(context.Background(), dir); err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	root, ok := tr.Get(tr.RootID())
	if !ok {
		t.Fatalf("expected root node")
	}
	if root.Summary == "" || root.Summary == "User knowledge across 0 domains" {
		t.Errorf("expected rewritten root summary, got %q", root.Summary)
	}
}

func TestOrchestrator_ProcessFolder_CookingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chocolate-cake.md",
		"# Chocolate Cake Recipe\n\n## Ingredients\n\n- 2 cups flour\n- 1 cup sugar\n- 1/2 cup cocoa\n\n## Instructions\n\nMix and bake at 350F.\n")
	writeFile(t, dir, "pasta.md",
		"# Pasta Carbonara\n\nA classic recipe: combine the ingredients, follow the instructions, cook the pasta.\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	result, err := orch.ProcessFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	if result.Domain != "cooking" {
		t.Errorf("domain = %q, want cooking", result.Domain)
	}
	if result.NodesCreated < 3 {
		t.Errorf("nodes created = %d, want >= 3", result.NodesCreated)
	}

	domains := 0
	for _, n := range tr.NodesAtDepth(1) {
		if n.Type == types.NodeTypeDomain {
			domains++
		}
	}
	if domains != 1 {
		t.Errorf("domains = %d, want 1", domains)
	}

	if matches := tr.Search("pasta"); len(matches) == 0 {
		t.Error("expected query(\"pasta\") to match the pasta document")
	}

	root, _ := tr.Get(tr.RootID())
	if !strings.Contains(root.Summary, "1 domain") {
		t.Errorf("root summary = %q, want it to mention 1 domain", root.Summary)
	}
}

func TestOrchestrator_ProcessFolder_RustProjectScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# Test Project\n\nA test project using Rust and tokio.\n")
	writeFile(t, dir, "Cargo.toml", "[package]\nname = \"test-project\"\nversion = \"0.1.0\"\n")
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "src"), "main.rs", "fn main() {\n    println!(\"hello\");\n}\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	result, err := orch.ProcessFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	if result.Domain != "coding" {
		t.Errorf("domain = %q, want coding", result.Domain)
	}
	if result.NodesCreated < 3 {
		t.Errorf("nodes created = %d, want >= 3", result.NodesCreated)
	}

	project, ok := tr.GetByPath(dir)
	if !ok {
		t.Fatalf("expected project node for %s", dir)
	}
	if project.Depth != 3 {
		t.Errorf("project depth = %d, want 3 (root > coding > rust-projects > project)", project.Depth)
	}

	ancestry, err := tr.GetAncestry(project.ID)
	if err != nil {
		t.Fatalf("GetAncestry: %v", err)
	}
	var sawSubcategory bool
	for _, a := range ancestry {
		if a.Type == types.NodeTypeCategory && a.Name == "rust-projects" {
			sawSubcategory = true
		}
	}
	if !sawSubcategory {
		t.Error("expected a rust-projects category in the project's ancestry")
	}

	var sawRust bool
	for _, childID := range project.Children {
		child, ok := tr.Get(childID)
		if !ok {
			continue
		}
		for _, e := range child.Entities {
			if e.Type == types.EntityTechnology && e.NormalizedName == "rust" {
				sawRust = true
			}
		}
	}
	if !sawRust {
		t.Error("expected a Technology entity normalized to \"rust\"")
	}
}

func TestDetectDomain(t *testing.T) {
	tests := []struct {
		name       string
		summary    string
		extensions []string
		want       string
	}{
		{"coding by extension", "", []string{"go", "md"}, "coding"},
		{"cooking by keyword", "My favorite recipe for bake ingredients", nil, "cooking"},
		{"work by keyword", "Notes from the meeting about the project deadline", nil, "work"},
		{"other fallback", "random notes about nothing in particular", nil, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDomain(tt.summary, tt.extensions, nil)
			if got.Domain != tt.want {
				t.Errorf("domain = %q, want %q", got.Domain, tt.want)
			}
		})
	}
}

func TestDetectDomain_Subcategory(t *testing.T) {
	got := DetectDomain("", []string{"py", "py", "go"}, nil)
	if got.Subcategory != "python-projects" {
		t.Errorf("subcategory = %q, want python-projects", got.Subcategory)
	}

	// Majority is by file count, not by which extensions exist: one stray
	// .rs file must not outvote a predominantly Python folder.
	got = DetectDomain("", []string{"rs", "py", "py", "py", "md"}, nil)
	if got.Subcategory != "python-projects" {
		t.Errorf("subcategory = %q, want python-projects for a py-majority folder", got.Subcategory)
	}
}

func TestOrchestrator_ProcessFolder_MajorityLanguageSubcategory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.rs", "fn lib() {}\n")
	writeFile(t, dir, "a.py", "print('a')\n")
	writeFile(t, dir, "b.py", "print('b')\n")
	writeFile(t, dir, "c.py", "print('c')\n")

	tr := tree.New()
	orch := New(tr, DefaultConfig())

	if _, err := orch.ProcessFolder(context.Background(), dir); err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	project, ok := tr.GetByPath(dir)
	if !ok {
		t.Fatalf("expected project node for %s", dir)
	}
	ancestry, err := tr.GetAncestry(project.ID)
	if err != nil {
		t.Fatalf("GetAncestry: %v", err)
	}
	for _, a := range ancestry {
		if a.Type == types.NodeTypeCategory && a.Name != "python-projects" {
			t.Errorf("category = %q, want python-projects", a.Name)
		}
	}
}

func TestDetectDomain_IsNewDomain(t *testing.T) {
	got := DetectDomain("", []string{"go"}, []string{"coding"})
	if got.IsNewDomain {
		t.Errorf("expected is_new_domain=false when coding already exists")
	}

	got = DetectDomain("", []string{"go"}, []string{"work"})
	if !got.IsNewDomain {
		t.Errorf("expected is_new_domain=true when coding is not in existing domains")
	}
}

func TestSummarize_TruncatesAtLastSpace(t *testing.T) {
	long := strings.Repeat("word ", 80)
	got := summarize(long)
	if got == "" {
		t.Fatalf("expected non-empty summary")
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected truncated summary to end with ellipsis, got %q", got)
	}
	if len(got) > 300 {
		t.Errorf("summary too long: %d chars", len(got))
	}
}

func TestSummarize_SkipsHeaders(t *testing.T) {
	content := "# Title\n\n---\n\nActual content line.\n"
	got := summarize(content)
	if got != "Actual content line." {
		t.Errorf("summarize = %q", got)
	}
}
