package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"
)

// SetUpFromFiles creates a temp directory containing the given files.
// Keys are slash-separated paths relative to the directory.
func SetUpFromFiles(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

// WriteFile writes a file, creating parent directories when missing.
func WriteFile(t testing.TB, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// SetUpFromGoldenDir copies the golden directory of the current test in a temp directory.
func SetUpFromGoldenDir(t testing.TB) string {
	return SetUpFromGoldenDirNamed(t, t.Name())
}

// SetUpFromGoldenDirNamed copies testdata/<testname> in a temp directory.
// Files are copied, not symlinked, as a sync rewrites them.
func SetUpFromGoldenDirNamed(t testing.TB, testname string) string {
	t.Helper()
	dirOut := filepath.Join(t.TempDir(), filepath.Base(testname))
	if err := copy.Copy(filepath.Join("testdata", testname), dirOut); err != nil {
		t.Fatal(err)
	}
	return dirOut
}

// GoldenFileNamed reads the content of the given golden file.
func GoldenFileNamed(t testing.TB, filename string) []byte {
	t.Helper()
	path := filepath.Join("testdata", filename)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed reading golden file %s: %v", path, err)
	}
	return b
}

// ReadFile returns the content of a file as a string.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
