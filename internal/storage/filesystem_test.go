package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemSecurity(t *testing.T) {
	root := t.TempDir()
	tempDir := filepath.Join(root, "state")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Create a test file outside the base directory
	outsideFile := filepath.Join(root, "outside.txt")
	if err := os.WriteFile(outsideFile, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileSystem(tempDir)
	ctx := context.Background()

	t.Run("Save prevents directory traversal", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			want bool // true if should succeed
		}{
			{"normal path", "arcs.json", true},
			{"subdirectory", "trackers/ember-wastes.json", true},
			{"parent traversal", "../arcs.json", false},
			{"complex traversal", "trackers/../../arcs.json", false},
			{"absolute path", "/etc/passwd", false},
			{"hidden traversal", "trackers/../../../etc/passwd", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := fs.Save(ctx, tt.path, []byte("{}"))
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for path %q, got none", tt.path)
				}
			})
		}
	})

	t.Run("Load prevents directory traversal", func(t *testing.T) {
		validPath := filepath.Join(tempDir, "valid.json")
		if err := os.WriteFile(validPath, []byte("valid"), 0644); err != nil {
			t.Fatal(err)
		}

		tests := []struct {
			name string
			path string
			want bool
		}{
			{"normal path", "valid.json", true},
			{"parent traversal", "../outside.txt", false},
			{"absolute path", outsideFile, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fs.Load(ctx, tt.path)
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for path %q, got none", tt.path)
				}
			})
		}
	})

	t.Run("List prevents directory traversal", func(t *testing.T) {
		tests := []struct {
			name    string
			pattern string
			want    bool
		}{
			{"normal pattern", "*.json", true},
			{"subdirectory pattern", "trackers/*.json", true},
			{"parent traversal", "../*", false},
			{"absolute pattern", "/etc/*", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := fs.List(ctx, tt.pattern)
				if tt.want && err != nil {
					t.Errorf("expected success, got error: %v", err)
				}
				if !tt.want && err == nil {
					t.Errorf("expected error for pattern %q, got none", tt.pattern)
				}
			})
		}
	})

	t.Run("Exists never escapes", func(t *testing.T) {
		if fs.Exists(ctx, "../outside.txt") {
			t.Error("Exists reported a file outside the base directory")
		}
		if !fs.Exists(ctx, "valid.json") {
			t.Error("Exists missed a file inside the base directory")
		}
	})
}

func TestSanitizePath(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewFileSystem(tempDir)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple file", "arcs.json", false},
		{"nested file", "trackers/world.json", false},
		{"dot file", ".hidden", false},
		{"parent directory", "../file.txt", true},
		{"sneaky parent", "dir/../../../etc/passwd", true},
		{"absolute path", "/etc/passwd", true},
		{"empty path", "", false},
		{"dot path", ".", false},
		{"double dot", "..", true},
		{"contains double dot", "some/..thing/file", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.sanitizePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("sanitizePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
				return
			}
			if err == nil && !strings.HasPrefix(got, fs.BaseDir()) {
				t.Errorf("sanitizePath(%q) = %q, not under base directory %q", tt.path, got, tempDir)
			}
		})
	}
}

func TestSaveReplacesContent(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	for _, content := range []string{`{"arcs":[1]}`, `{"arcs":[]}`} {
		if err := fs.Save(ctx, "arcs.json", []byte(content)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := fs.Load(ctx, "arcs.json")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if string(got) != content {
			t.Errorf("Load() = %q, want %q", got, content)
		}
	}

	// No temp files are left next to the target.
	files, err := fs.List(ctx, "*")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "arcs.json" {
		t.Errorf("List(*) = %v, want [arcs.json]", files)
	}
}

func TestEpisodePath(t *testing.T) {
	tests := []struct {
		arc     string
		episode int
		want    string
	}{
		{"Ash Veil", 3, filepath.Join("out", "ash-veil", "episode_003")},
		{"The Glass/Marsh: Part II", 12, filepath.Join("out", "the-glass-marsh-part-ii", "episode_012")},
		{"../../etc", 1, filepath.Join("out", "etc", "episode_001")},
		{"???", 1000, filepath.Join("out", "arc", "episode_1000")},
	}

	for _, tt := range tests {
		t.Run(tt.arc, func(t *testing.T) {
			if got := EpisodePath("out", tt.arc, tt.episode); got != tt.want {
				t.Errorf("EpisodePath(%q, %d) = %q, want %q", tt.arc, tt.episode, got, tt.want)
			}
		})
	}
}

func TestSanitizeForFilenameTruncates(t *testing.T) {
	got := sanitizeForFilename(strings.Repeat("ab ", 30), 10)
	if len(got) > 10 || strings.HasSuffix(got, "-") {
		t.Errorf("sanitizeForFilename() = %q", got)
	}
}
