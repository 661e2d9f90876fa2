package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/chazu/typecore/vm"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[project]
name = "test-app"
namespace = "TestApp"
version = "0.1.0"

[log]
verbosity = 2
file = "logs/typecore.log"

[runtime]
operator-cache = false
deepcopy-depth-limit = 64

[classes]
dirs = ["classes", "more"]
files = ["extra/point.toml"]
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Namespace != "TestApp" {
		t.Errorf("project namespace = %q, want TestApp", m.Project.Namespace)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if want := filepath.Join(m.Dir, "logs", "typecore.log"); m.LogPath() != want {
		t.Errorf("LogPath() = %q, want %q", m.LogPath(), want)
	}
	if !reflect.DeepEqual(m.Classes.Dirs, []string{"classes", "more"}) {
		t.Errorf("class dirs = %v", m.Classes.Dirs)
	}

	opts := m.RuntimeOptions()
	if opts.OperatorCache {
		t.Error("operator cache should be disabled")
	}
	if opts.DeepCopyDepthLimit != 64 {
		t.Errorf("deep-copy depth limit = %d, want 64", opts.DeepCopyDepthLimit)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[project]
name = "my-shapes"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Namespace != "MyShapes" {
		t.Errorf("default namespace = %q, want MyShapes", m.Project.Namespace)
	}
	if len(m.Classes.Dirs) != 1 || m.Classes.Dirs[0] != "classes" {
		t.Errorf("default class dirs = %v, want [classes]", m.Classes.Dirs)
	}
	if m.LogPath() != "" {
		t.Errorf("LogPath() = %q, want stderr", m.LogPath())
	}
	if got, want := m.RuntimeOptions(), vm.DefaultOptions(); got != want {
		t.Errorf("RuntimeOptions() = %+v, want %+v", got, want)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[project\nname = 1"},
		{"reserved namespace", "[project]\nname = \"x\"\nnamespace = \"Tuple\"\n"},
		{"reserved derived namespace", "[project]\nname = \"object\"\n"},
		{"negative depth", "[runtime]\ndeepcopy-depth-limit = -1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tc.content)
			if _, err := Load(dir); err == nil {
				t.Error("Load should fail")
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of a directory without a manifest should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[project]\nname = \"found-me\"\n")

	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-me" {
		t.Errorf("project name = %q, want found-me", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when none found")
	}
}

func TestClassFilePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[classes]
dirs = ["classes", "missing"]
files = ["extra/late.toml"]
`)
	writeFile(t, filepath.Join(dir, "classes", "b.toml"), "")
	writeFile(t, filepath.Join(dir, "classes", "a.cbor"), "")
	writeFile(t, filepath.Join(dir, "classes", "notes.txt"), "")
	if err := os.MkdirAll(filepath.Join(dir, "classes", "nested.toml"), 0755); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := m.ClassFilePaths()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(m.Dir, "classes", "a.cbor"),
		filepath.Join(m.Dir, "classes", "b.toml"),
		filepath.Join(m.Dir, "extra", "late.toml"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("ClassFilePaths() = %v, want %v", paths, want)
	}
}
