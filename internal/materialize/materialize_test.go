package materialize

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/prose/internal/doctree"
	"github.com/klauspost/compress/zip"
)

func doc(id, title, content string) doctree.DocumentNode {
	return doctree.DocumentNode{ID: id, Title: title, Content: content}
}

func paths(files []doctree.ExportedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelativePath
	}
	return out
}

func TestFlatten_PathsFollowFolderNames(t *testing.T) {
	roots := []*doctree.FolderTreeNode{
		{
			ID:        doctree.RootID,
			Documents: []doctree.DocumentNode{doc("d0", "readme", "r")},
		},
		{
			ID:        "f1",
			Name:      "book",
			Documents: []doctree.DocumentNode{doc("d1", "main", "m")},
			Folders: []*doctree.FolderTreeNode{
				{
					ID:   "f2",
					Name: "parts",
					Folders: []*doctree.FolderTreeNode{
						{ID: "f3", Name: "one", Documents: []doctree.DocumentNode{doc("d3", "ch1.tex", "c")}},
					},
				},
			},
		},
	}

	files, err := Flatten(roots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"readme.tex", "book/main.tex", "book/parts/one/ch1.tex"}
	got := paths(files)
	if len(got) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if files[1].Content != "m" {
		t.Errorf("expected content %q, got %q", "m", files[1].Content)
	}
}

func TestFlatten_OneFilePerDocument(t *testing.T) {
	roots := []*doctree.FolderTreeNode{
		{ID: "a", Name: "a", Documents: []doctree.DocumentNode{doc("1", "x", ""), doc("2", "y", "")},
			Folders: []*doctree.FolderTreeNode{{ID: "b", Name: "b", Documents: []doctree.DocumentNode{doc("3", "z", "")}}}},
		{ID: "c", Name: "c", Documents: []doctree.DocumentNode{doc("4", "x", "")}},
	}
	files, err := Flatten(roots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != doctree.CountDocuments(roots) {
		t.Errorf("expected %d files, got %d", doctree.CountDocuments(roots), len(files))
	}
}

func TestFlatten_DeterministicSiblingOrder(t *testing.T) {
	build := func(order []string) []*doctree.FolderTreeNode {
		var folders []*doctree.FolderTreeNode
		for _, name := range order {
			folders = append(folders, &doctree.FolderTreeNode{
				ID: name, Name: name, Documents: []doctree.DocumentNode{doc(name, "main", "")},
			})
		}
		return folders
	}

	a, err := Flatten(build([]string{"zeta", "alpha", "mid"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Flatten(build([]string{"mid", "zeta", "alpha"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pa, pb := paths(a), paths(b)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("order differs: %v vs %v", pa, pb)
		}
	}
	if pa[0] != "alpha/main.tex" {
		t.Errorf("expected alpha first, got %v", pa)
	}
}

func TestFlatten_CollisionIsAnError(t *testing.T) {
	roots := []*doctree.FolderTreeNode{
		{ID: "r", Documents: []doctree.DocumentNode{doc("1", "main", "a"), doc("2", "main.tex", "b")}},
	}
	_, err := Flatten(roots)
	var collision *CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.Path != "main.tex" {
		t.Errorf("expected path %q, got %q", "main.tex", collision.Path)
	}
}

func TestFlatten_DocumentShadowingFolderIsAnError(t *testing.T) {
	roots := []*doctree.FolderTreeNode{
		{ID: "r", Documents: []doctree.DocumentNode{doc("1", "notes.tex", "")},
			Folders: []*doctree.FolderTreeNode{{ID: "f", Name: "notes.tex", Documents: []doctree.DocumentNode{doc("2", "a", "")}}}},
	}
	if _, err := Flatten(roots); err == nil {
		t.Fatal("expected collision error")
	}
}

func TestFlatten_SanitizesTraversal(t *testing.T) {
	roots := []*doctree.FolderTreeNode{
		{ID: "f", Name: "..", Documents: []doctree.DocumentNode{doc("1", "../../etc/passwd", "")}},
	}
	files, err := Flatten(roots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := files[0].RelativePath
	if strings.HasPrefix(p, "/") {
		t.Errorf("absolute path produced: %q", p)
	}
	segments := strings.Split(p, "/")
	if len(segments) != 2 {
		t.Fatalf("expected folder/file, got %q", p)
	}
	for _, seg := range segments {
		if seg == ".." || seg == "." {
			t.Errorf("traversal segment in %q", p)
		}
	}
}

func TestSanitizeSegment(t *testing.T) {
	cases := map[string]string{
		"Chapter 1":    "Chapter_1",
		"a/b\\c":       "a_b_c",
		"  spaced  ":   "spaced",
		"what?":        "what",
		"":             "untitled",
		"..":           "_",
		"__x__":        "x",
		"refs.bib":     "refs.bib",
		"tab\tand\nnl": "tab_and_nl",
	}
	for in, want := range cases {
		if got := SanitizeSegment(in); got != want {
			t.Errorf("SanitizeSegment(%q) = %q, want %q", in, got, want)
		}
	}
	long := strings.Repeat("é", 150)
	if got := SanitizeSegment(long); len(got) > maxSegmentBytes {
		t.Errorf("expected at most %d bytes, got %d", maxSegmentBytes, len(got))
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"intro":       "intro.tex",
		"main.tex":    "main.tex",
		"refs.bib":    "refs.bib",
		"thesis.sty":  "thesis.sty",
		"Notes.TEX":   "Notes.TEX",
		"Dr. Smith":   "Dr._Smith.tex",
		"Chapter 1.2": "Chapter_1.2.tex",
		"v2.0":        "v2.0.tex",
		"ch.1":        "ch.1.tex",
		"report.md":   "report.md.tex",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlatten_DottedTitlesGetTexExtension(t *testing.T) {
	roots := []*doctree.FolderTreeNode{{
		ID: doctree.RootID,
		Documents: []doctree.DocumentNode{
			doc("a", "Dr. Smith", "a"),
			doc("b", "ch.1", "b"),
		},
	}}
	files, err := Flatten(roots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := map[string]bool{}
	for _, f := range files {
		got[f.RelativePath] = true
	}
	if !got["Dr._Smith.tex"] || !got["ch.1.tex"] {
		t.Errorf("expected .tex on dotted titles, got %v", got)
	}
}

func TestFlatten_DottedTitleCollidesWithExplicitTex(t *testing.T) {
	roots := []*doctree.FolderTreeNode{{
		ID: doctree.RootID,
		Documents: []doctree.DocumentNode{
			doc("a", "ch.1", "a"),
			doc("b", "ch.1.tex", "b"),
		},
	}}
	var collision *CollisionError
	if _, err := Flatten(roots); !errors.As(err, &collision) {
		t.Fatalf("expected *CollisionError, got %v", err)
	}
}

func TestWrite_CreatesHierarchy(t *testing.T) {
	root := t.TempDir()
	files := []doctree.ExportedFile{
		{RelativePath: "main.tex", Content: "root"},
		{RelativePath: "book/ch1.tex", Content: "one"},
		{RelativePath: "book/ch2.tex", Content: "two"},
		{RelativePath: "book/deep/x.tex", Content: "deep"},
	}
	if err := Write(root, files); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.RelativePath)))
		if err != nil {
			t.Fatalf("read %s: %v", f.RelativePath, err)
		}
		if string(data) != f.Content {
			t.Errorf("%s: expected %q, got %q", f.RelativePath, f.Content, data)
		}
	}
}

func TestWrite_ExistingDirectoryIsFine(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "book"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Write(root, []doctree.ExportedFile{{RelativePath: "book/a.tex", Content: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWrite_FailsWhenRootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Write(root, []doctree.ExportedFile{{RelativePath: "a/b.tex", Content: "b"}})
	if err == nil {
		t.Fatal("expected error writing under a regular file")
	}
}

func TestWriteZip_RoundTrip(t *testing.T) {
	files := []doctree.ExportedFile{
		{RelativePath: "main.tex", Content: "hello"},
		{RelativePath: "book/ch1.tex", Content: "chapter"},
	}
	var buf bytes.Buffer
	if err := WriteZip(&buf, files); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if zr.File[1].Name != "book/ch1.tex" || string(data) != "chapter" {
		t.Errorf("unexpected entry %q: %q", zr.File[1].Name, data)
	}
}
