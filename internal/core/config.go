package core

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/julien-sobczak/anksidian/internal/anki"
	"github.com/julien-sobczak/anksidian/internal/maths"
	"github.com/julien-sobczak/anksidian/internal/medias"
	"github.com/julien-sobczak/anksidian/pkg/resync"
	"github.com/julien-sobczak/anksidian/pkg/text"
	"github.com/pelletier/go-toml/v2"
)

// How many parent directories to traverse before considering a directory as not a vault
const maxDepth = 10

const (
	// ConfigDir is the directory marking the root of a vault
	ConfigDir = ".anksidian"
	// IgnoreFileName lists paths to skip
	IgnoreFileName = ".ankiignore"
)

// Environment variables overriding the configuration
const (
	EnvHome = "ANKSIDIAN_HOME"
	EnvURL  = "ANKICONNECT_URL"
	EnvKey  = "ANKICONNECT_KEY"
)

// ErrNoDeck is returned when no deck mapping matches a file.
var ErrNoDeck = errors.New("no deck mapping")

// Default .anksidian/config content
const DefaultConfig = `
[core]
extensions=["md", "markdown"]
parallel=4

[anki]
url="http://127.0.0.1:8765"
model="Cloze"
retries=5

[[decks]]
path="*"
deck="Default"
`

// Default .anksidian/.gitignore content
const DefaultGitIgnore = `
/cache.db
`

// Default .ankiignore content
const DefaultIgnore = `
.obsidian/
.trash/
templates/
`

var (
	// Lazy-load configuration and ensure a single read
	configOnce      resync.Once
	configSingleton *Config
)

// Note: Fields must be public for toml package to unmarshall
type ConfigFile struct {
	Core   ConfigCore
	Anki   ConfigAnki
	Medias ConfigMedias
	Maths  ConfigMaths
	Decks  []ConfigDeck
	Prune  ConfigPrune
}
type ConfigCore struct {
	Extensions []string
	Parallel   int
}
type ConfigAnki struct {
	URL     string `toml:"url"`
	Key     string
	Model   string
	Retries *int
}
type ConfigMedias struct {
	JxlCommand string `toml:"jxl_command"`
}
type ConfigMaths struct {
	TypstCommand  string `toml:"typst_command"`
	PandocCommand string `toml:"pandoc_command"`
}
type ConfigDeck struct {
	Path GlobPath
	Deck string
}
type ConfigPrune struct {
	// Ask to delete notes no longer present in files after each sync
	Enabled bool
}

// SupportExtension checks if the given file extension must be considered.
func (f *ConfigFile) SupportExtension(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".") // ".md" => "md"
	for _, extension := range f.Core.Extensions {
		if strings.EqualFold(extension, ext) { // case-insensitive
			return true
		}
	}
	return false
}

// DeckFor returns the deck of the first mapping matching the relative path.
func (f *ConfigFile) DeckFor(relativePath string) (string, error) {
	for _, mapping := range f.Decks {
		if mapping.Path.Match(relativePath) {
			return mapping.Deck, nil
		}
	}
	return "", fmt.Errorf("%w for %q", ErrNoDeck, relativePath)
}

// DeckNames returns the distinct decks in declaration order.
func (f *ConfigFile) DeckNames() []string {
	var result []string
	seen := make(map[string]bool)
	for _, mapping := range f.Decks {
		if !seen[mapping.Deck] {
			seen[mapping.Deck] = true
			result = append(result, mapping.Deck)
		}
	}
	return result
}

// Model returns the note type used for new notes.
func (f *ConfigFile) Model() string {
	if f.Anki.Model == "" {
		return anki.ModelCloze
	}
	return f.Anki.Model
}

// Validate checks the configuration is usable.
func (f *ConfigFile) Validate() error {
	err := validation.ValidateStruct(&f.Core,
		validation.Field(&f.Core.Extensions, validation.Required),
		validation.Field(&f.Core.Parallel, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("core: %w", err)
	}
	err = validation.ValidateStruct(&f.Anki,
		validation.Field(&f.Anki.URL, validation.Required, is.URL),
		validation.Field(&f.Anki.Retries, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("anki: %w", err)
	}
	if err := validation.Validate(f.Decks, validation.Required); err != nil {
		return fmt.Errorf("decks: %w", err)
	}
	for i, mapping := range f.Decks {
		err := validation.ValidateStruct(&mapping,
			validation.Field(&mapping.Path, validation.Required, validation.By(validGlob)),
			validation.Field(&mapping.Deck, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("decks[%d]: %w", i, err)
		}
	}
	return nil
}

func validGlob(value any) error {
	glob, _ := value.(GlobPath)
	_, err := glob.Regexp()
	return err
}

type IgnoreFile struct {
	Entries GlobPaths
}

func (i *IgnoreFile) MustExcludeFile(path string, dir bool) bool {
	path = strings.Trim(path, "/")
	if dir {
		path += "/"
	}
	return i.Entries.Match(path)
}

// GlobPath is a gitignore-like pattern.
type GlobPath string

func (g GlobPath) Negate() bool {
	return strings.HasPrefix(string(g), "!")
}

func (g GlobPath) Expr() string {
	return strings.TrimPrefix(string(g), "!")
}

var globCache sync.Map // GlobPath => *regexp.Regexp

// Regexp converts the pattern to a regular expression.
func (g GlobPath) Regexp() (*regexp.Regexp, error) {
	if re, ok := globCache.Load(g); ok {
		return re.(*regexp.Regexp), nil
	}

	// The Go standard library doesn't support the same Git syntax (ex: ** is missing).
	expr := g.Expr()
	leadingSlash := strings.HasPrefix(expr, "/")
	trailingSlash := strings.HasSuffix(expr, "/")
	// Ex: "projects/" => `/projects/.*?` to match "projects/index.md" but not "myprojects/"
	if !leadingSlash {
		expr = "/" + expr
	}
	if trailingSlash {
		expr = expr + "**/"
	}

	var partsPatterns []string
	for _, part := range strings.Split(expr, "**/") {
		var subparts []string
		for _, subpart := range strings.Split(part, "*") {
			subparts = append(subparts, regexp.QuoteMeta(subpart))
		}
		partsPatterns = append(partsPatterns, strings.Join(subparts, "[^/]*?")) // * => [^/]*
	}
	pattern := strings.Join(partsPatterns, ".*?") // ** => .*?
	if leadingSlash {
		pattern = "^" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", g, err)
	}
	globCache.Store(g, re)
	return re, nil
}

// Match tests a given path. NB: Directories must have a trailing /.
func (g GlobPath) Match(path string) bool {
	if runtime.GOOS == "windows" {
		path = filepath.ToSlash(path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	re, err := g.Regexp()
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

type GlobPaths []GlobPath

// Match tests if a file path satisfies the conditions.
func (g GlobPaths) Match(path string) bool {
	foundMatch := false
	for _, entry := range g {
		if entry.Match(path) {
			if entry.Negate() {
				// An exclusion matched, the file must no longer be included.
				return false
			}
			foundMatch = true
		}
	}
	return foundMatch
}

/* Main config */

type Config struct {
	// Absolute top directory containing the .anksidian sub-directory
	RootDirectory string

	// .anksidian/config content
	ConfigFile ConfigFile

	// .ankiignore content
	IgnoreFile IgnoreFile

	// Temporary directory to convert medias
	tempDir     string
	tempDirOnce sync.Once

	mathsOnce sync.Once
	maths     *maths.Converter
}

func CurrentConfig() *Config {
	configOnce.Do(func() {
		var err error
		configSingleton, err = ReadConfigFromDirectory(currentHome())
		if err != nil {
			CurrentLogger().Fatalf("Unable to read current configuration: %v", err)
		}
		if configSingleton == nil {
			CurrentLogger().Fatalf("fatal: not an anksidian vault (or any of the parent directories): %s", ConfigDir)
		}
	})
	return configSingleton
}

// TempDir returns the privileged temporary directory to use when generating temporary files.
func (c *Config) TempDir() string {
	c.tempDirOnce.Do(func() {
		dir, err := os.MkdirTemp("", "anksidian")
		if err != nil {
			CurrentLogger().Fatalf("Unable to init temp dir: %v", err)
		}
		c.tempDir = dir
	})
	return c.tempDir
}

// Cleanup removes temporary files.
func (c *Config) Cleanup() error {
	if c.tempDir == "" {
		return nil
	}
	return os.RemoveAll(c.tempDir)
}

// ImageConverter returns the converter used to re-encode images unsupported by Anki.
func (c *Config) ImageConverter() medias.Converter {
	switch c.ConfigFile.Medias.JxlCommand {
	case "random":
		return medias.NewRandomConverter()
	default:
		converter, err := medias.NewDjxlConverter(c.ConfigFile.Medias.JxlCommand)
		if err != nil {
			CurrentLogger().Debugf("JPEG XL pictures cannot be converted: %v", err)
			return &medias.UnavailableConverter{Err: err}
		}
		converter.OnPreGeneration(func(cmd string, args ...string) {
			CurrentLogger().Debugf("Running command %q", cmd+" "+strings.Join(args, " "))
		})
		return converter
	}
}

// MathConverter returns the converter of formulas, shared between files to reuse its cache.
func (c *Config) MathConverter() *maths.Converter {
	c.mathsOnce.Do(func() {
		if c.ConfigFile.Maths.TypstCommand == "none" {
			c.maths = maths.NewLatexConverter()
			return
		}
		c.maths = maths.NewConverter(c.ConfigFile.Maths.TypstCommand, c.ConfigFile.Maths.PandocCommand)
		c.maths.OnCommand(func(cmd string, args ...string) {
			CurrentLogger().Tracef("Running command %q", cmd+" "+strings.Join(args, " "))
		})
		if !c.maths.TypstAvailable() {
			CurrentLogger().Info("typst not found, formulas are considered LaTeX")
		}
	})
	return c.maths
}

// AnkiClient returns a client for the configured AnkiConnect instance.
func (c *Config) AnkiClient() *anki.Client {
	policy := anki.DefaultRetryPolicy()
	if c.ConfigFile.Anki.Retries != nil {
		policy.MaxRetries = *c.ConfigFile.Anki.Retries
	}
	return anki.NewClient(
		anki.WithURL(c.ConfigFile.Anki.URL),
		anki.WithKey(c.ConfigFile.Anki.Key),
		anki.WithRetryPolicy(policy),
		anki.WithLogger(CurrentLogger().Backend()),
	)
}

func currentHome() string {
	// Supports overriding the root directory mainly for testing purposes. Ex:
	//
	//   $ env ANKSIDIAN_HOME=./vault go run ./cmd/anksidian sync
	if path, ok := os.LookupEnv(EnvHome); ok {
		abspath, err := filepath.Abs(path)
		if err != nil {
			CurrentLogger().Fatalf("Failed to evaluate $%s", EnvHome)
		}
		if _, err := os.Stat(abspath); os.IsNotExist(err) {
			CurrentLogger().Fatalf("Path in $%s undefined", EnvHome)
		}
		return abspath
	}

	cwd, err := os.Getwd()
	if err != nil {
		CurrentLogger().Fatalf("Unable to determine current directory: %v", err)
	}
	return cwd
}

// ReadConfigFromDirectory loads the configuration by searching for a .anksidian directory in the given directory
// or any parent directories. A nil configuration is returned when no vault is found.
func ReadConfigFromDirectory(path string) (*Config, error) {
	rootPath, err := findRoot(path)
	if err != nil || rootPath == "" {
		return nil, err
	}

	configFile, err := readOrDefault(filepath.Join(rootPath, ConfigDir, "config"), DefaultConfig, parseConfigFile)
	if err != nil {
		return nil, err
	}
	configFile.applyEnv()
	configFile.applyDefaults()
	if err := configFile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ignoreFile, err := readOrDefault(filepath.Join(rootPath, IgnoreFileName), DefaultIgnore, parseIgnoreFile)
	if err != nil {
		return nil, err
	}

	return &Config{
		RootDirectory: rootPath,
		ConfigFile:    *configFile,
		IgnoreFile:    *ignoreFile,
	}, nil
}

func findRoot(path string) (string, error) {
	rootPath := path
	for i := 0; i < maxDepth; i++ { // Safeguard to not go up too far
		_, err := os.Stat(filepath.Join(rootPath, ConfigDir))
		if err == nil {
			return rootPath, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("error while searching for configuration directory: %w", err)
		}
		parent := filepath.Dir(rootPath)
		if parent == rootPath {
			// Root directory detected
			return "", nil
		}
		rootPath = parent
	}
	return "", nil
}

func readOrDefault[T any](path string, defaultContent string, parse func(string) (*T, error)) (*T, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		result, err := parse(defaultContent)
		if err != nil {
			return nil, fmt.Errorf("default configuration is broken: %w", err)
		}
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	result, err := parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return result, nil
}

func (f *ConfigFile) applyEnv() {
	if url, ok := os.LookupEnv(EnvURL); ok && url != "" {
		f.Anki.URL = url
	}
	if key, ok := os.LookupEnv(EnvKey); ok {
		f.Anki.Key = key
	}
}

func (f *ConfigFile) applyDefaults() {
	if len(f.Core.Extensions) == 0 {
		f.Core.Extensions = []string{"md"}
	}
	if f.Core.Parallel == 0 {
		f.Core.Parallel = runtime.NumCPU()
	}
	if f.Anki.URL == "" {
		f.Anki.URL = anki.DefaultURL
	}
}

func parseConfigFile(content string) (*ConfigFile, error) {
	r := strings.NewReader(content)
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	var result ConfigFile
	err := d.Decode(&result)
	return &result, err
}

func parseIgnoreFile(content string) (*IgnoreFile, error) {
	var result IgnoreFile
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if text.IsBlank(line) {
			// ignore blank line
			continue
		}
		if strings.HasPrefix(line, "#") {
			// ignore comment
			continue
		}
		result.Entries = append(result.Entries, GlobPath(strings.TrimSpace(line)))
	}
	return &result, scanner.Err()
}

// InitConfigFromDirectory creates the .anksidian configuration directory with default files including .ankiignore.
func InitConfigFromDirectory(path string) (*Config, error) {
	currentConfig, err := ReadConfigFromDirectory(path)
	if err != nil {
		return nil, err
	}
	if currentConfig != nil {
		// Do not override current configuration
		return nil, fmt.Errorf("current configuration detected")
	}

	configDir := filepath.Join(path, ConfigDir)
	if err := os.Mkdir(configDir, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(configDir, "config"), []byte(DefaultConfig), 0644); err != nil {
		return nil, err
	}
	if err := writeIfMissing(filepath.Join(configDir, ".gitignore"), DefaultGitIgnore); err != nil {
		return nil, err
	}
	if err := writeIfMissing(filepath.Join(path, IgnoreFileName), DefaultIgnore); err != nil {
		return nil, err
	}

	// Reread configuration
	return ReadConfigFromDirectory(path)
}

func writeIfMissing(path, content string) error {
	_, err := os.Stat(path)
	if os.IsNotExist(err) { // Do not override existing file!
		return os.WriteFile(path, []byte(content), 0644)
	}
	return err
}
