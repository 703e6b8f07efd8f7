package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/testutil"
	"github.com/julien-sobczak/anksidian/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reset forces singletons to be recreated. Useful between unit tests.
func Reset() {
	configOnce.Reset()
	loggerOnce.Reset()
	repositoryOnce.Reset()
}

/* Fixtures */

// TestConfig is the configuration of vaults created by SetUpVault.
// External tools are replaced by deterministic implementations.
const TestConfig = `
[core]
extensions=["md", "markdown"]
parallel=2

[anki]
model="Cloze"
retries=0

[medias]
jxl_command="random"

[maths]
typst_command="none"

[[decks]]
path="rust/"
deck="Rust"

[[decks]]
path="*"
deck="Go"
`

// SetUpVault populates a temp directory containing a valid vault with the given files.
// A default .anksidian/config is created when missing.
func SetUpVault(t *testing.T, files map[string]string) string {
	t.Helper()
	dirname := testutil.SetUpFromFiles(t, files)
	configureDir(t, dirname)
	return dirname
}

// SetUpVaultFromGoldenDir populates a temp directory from testdata/<test name>.
func SetUpVaultFromGoldenDir(t *testing.T) string {
	t.Helper()
	dirname := testutil.SetUpFromGoldenDir(t)
	configureDir(t, dirname)
	return dirname
}

func configureDir(t *testing.T, dirname string) {
	configPath := filepath.Join(dirname, ConfigDir, "config")
	if !fileExists(configPath) {
		testutil.WriteFile(t, configPath, TestConfig)
	}

	// Force the application to consider the temporary directory as the home
	t.Setenv(EnvHome, dirname)
	t.Setenv(EnvURL, "")
	t.Setenv(EnvKey, "")
	t.Cleanup(Reset)

	// Force debug level in tests to diagnose more easily
	CurrentLogger().SetVerboseLevel(VerboseDebug)
	CurrentLogger().Debugf("Set up vault %q", dirname)
}

// NewTestRepository returns a repository of the vault at dirname backed by a fake Anki.
func NewTestRepository(t *testing.T, dirname string, fake *anki.FakeAnki) *Repository {
	t.Helper()
	config, err := ReadConfigFromDirectory(dirname)
	require.NoError(t, err)
	require.NotNil(t, config)

	repository := NewRepository(config, fake.Client())
	repository.Cache, err = OpenCache(filepath.Join(dirname, ConfigDir, CacheFileName))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, repository.Close())
	})
	return repository
}

/* Reproducible Tests */

// FreezeNow wraps the clock API to register the cleanup function at the end of the test.
func FreezeNow(t *testing.T) time.Time {
	now := clock.Freeze().Now()
	t.Cleanup(clock.Unfreeze)
	return now
}

// FreezeAt wraps the clock API to register the cleanup function at the end of the test.
func FreezeAt(t *testing.T, point time.Time) time.Time {
	now := clock.FreezeAt(point).Now()
	t.Cleanup(clock.Unfreeze)
	return now
}

/* Test Helpers */

// ReplaceLine replaces the line at the given 1-based index after checking its current value.
func ReplaceLine(t *testing.T, path string, lineNumber int, oldLine, newLine string) {
	content := testutil.ReadFile(t, path)
	lines := strings.Split(content, "\n")
	require.Less(t, lineNumber-1, len(lines))
	require.Equal(t, oldLine, lines[lineNumber-1])
	lines[lineNumber-1] = newLine
	testutil.WriteFile(t, path, strings.Join(lines, "\n"))
}

// AppendLines adds lines at the end of a file.
func AppendLines(t *testing.T, path string, lines ...string) {
	content := testutil.ReadFile(t, path)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	testutil.WriteFile(t, path, content+strings.Join(lines, "\n"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
