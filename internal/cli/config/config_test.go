package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "crlf.yaml")
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	return filePath
}

// defineAllFlags mirrors the flag set of the crlf command.
func defineAllFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file")
	flags.String("profile", "", "Config profile")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.BoolP("git-file", "g", false, "List files with git")
	flags.StringP("dir", "C", "", "Directory to run in")
	flags.Int("concurrency", converter.DefaultConcurrency, "Concurrency level")
	flags.String("on-error", string(converter.DefaultOnErrorMode), "Error handling mode")
	flags.String("binary-mode", string(converter.DefaultBinaryMode), "Binary file handling mode")
	flags.Bool("skip-vendor", converter.DefaultSkipVendor, "Skip vendored files")
	flags.StringArray("ignore", []string{}, "Ignore patterns")
	flags.String("output-format", string(converter.DefaultOutputFormat), "Output format")
	flags.Bool("dry-run", converter.DefaultDryRun, "Do not write files")
	flags.Bool("cache", converter.DefaultCacheEnabled, "Enable cache")
	flags.String("cache-file", "", "Cache file")
	flags.String("cache-format", converter.DefaultCacheFormat, "Cache format")
	flags.Bool("tui", false, "Enable TUI")
	flags.Bool("no-tui", false, "Disable TUI")
}

func newFlags(t *testing.T, inputDir string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineAllFlags(flags)
	if inputDir != "" {
		require.NoError(t, flags.Set("dir", inputDir))
	}
	return flags
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	inputDir := t.TempDir()
	flags := newFlags(t, inputDir)

	opts, logger, err := LoadAndValidate("", "", "1.2.3", []string{"measure"}, flags)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NotNil(t, opts.Logger)

	absInput, _ := filepath.Abs(inputDir)
	assert.Equal(t, absInput, opts.InputPath)
	assert.Equal(t, converter.ActionMeasure, opts.Action)
	assert.Equal(t, converter.DefaultPattern, opts.Pattern)
	assert.Equal(t, converter.SourceGlob, opts.SourceMode)
	assert.Equal(t, converter.OnErrorContinue, opts.OnErrorMode)
	assert.Equal(t, converter.BinarySkip, opts.BinaryMode)
	assert.Equal(t, converter.OutputFormatText, opts.OutputFormat)
	assert.Equal(t, runtime.NumCPU(), opts.Concurrency)
	assert.Equal(t, "gob", opts.CacheFormat)
	assert.Equal(t, "1.2.3", opts.AppVersion)
	assert.False(t, opts.CacheEnabled)
	assert.False(t, opts.TuiEnabled)
	assert.False(t, opts.DryRun)
	assert.Empty(t, opts.IgnorePatterns)
	assert.Empty(t, opts.CacheFilePath)
}

func TestLoadAndValidate_ConfigFile_YAML(t *testing.T) {
	inputDir := t.TempDir()
	cfgFile := createTempConfigFile(t, `
pattern: "**/*.go"
concurrency: 4
onError: "stop"
binaryMode: "error"
skipVendor: true
cache: true
cacheFormat: "json"
ignore:
  - "*.tmp"
  - "vendor/"
verbose: true
tuiEnabled: true
`)
	flags := newFlags(t, inputDir)

	opts, _, err := LoadAndValidate(cfgFile, "", "dev", []string{"set-lf"}, flags)
	require.NoError(t, err)

	assert.Equal(t, cfgFile, opts.ConfigFilePath)
	assert.Equal(t, converter.ActionSetLF, opts.Action)
	assert.Equal(t, "**/*.go", opts.Pattern)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, converter.OnErrorStop, opts.OnErrorMode)
	assert.Equal(t, converter.BinaryError, opts.BinaryMode)
	assert.True(t, opts.SkipVendor)
	assert.True(t, opts.CacheEnabled)
	assert.Equal(t, "json", opts.CacheFormat)
	assert.Equal(t, []string{"*.tmp", "vendor/"}, opts.IgnorePatterns)
	assert.True(t, opts.Verbose)
	assert.False(t, opts.TuiEnabled, "Verbose disables TUI")

	absInput, _ := filepath.Abs(inputDir)
	assert.Equal(t, filepath.Join(absInput, converter.CacheFileName), opts.CacheFilePath)
}

func TestLoadAndValidate_Profile(t *testing.T) {
	cfgFile := createTempConfigFile(t, `
concurrency: 8
onError: "continue"
profiles:
  ci:
    concurrency: 2
    onError: "stop"
    outputFormat: "json"
`)

	t.Run("profile applied", func(t *testing.T) {
		opts, _, err := LoadAndValidate(cfgFile, "ci", "dev", []string{"measure"}, newFlags(t, t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, "ci", opts.ProfileName)
		assert.Equal(t, 2, opts.Concurrency)
		assert.Equal(t, converter.OnErrorStop, opts.OnErrorMode)
		assert.Equal(t, converter.OutputFormatJSON, opts.OutputFormat)
	})

	t.Run("no profile", func(t *testing.T) {
		opts, _, err := LoadAndValidate(cfgFile, "", "dev", []string{"measure"}, newFlags(t, t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, 8, opts.Concurrency)
		assert.Equal(t, converter.OnErrorContinue, opts.OnErrorMode)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, _, err := LoadAndValidate(cfgFile, "nope", "dev", []string{"measure"}, newFlags(t, t.TempDir()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profile 'nope' not found")
	})
}

func TestLoadAndValidate_FlagsOverrideConfig(t *testing.T) {
	cfgFile := createTempConfigFile(t, `
pattern: "*.md"
concurrency: 4
ignore:
  - "*.tmp"
cache: true
`)
	flags := newFlags(t, t.TempDir())
	require.NoError(t, flags.Set("concurrency", "3"))
	require.NoError(t, flags.Set("ignore", "build/"))
	require.NoError(t, flags.Set("ignore", "!build/keep.txt"))
	require.NoError(t, flags.Set("git-file", "true"))
	require.NoError(t, flags.Set("cache", "false"))
	require.NoError(t, flags.Set("dry-run", "true"))
	require.NoError(t, flags.Set("tui", "true"))

	opts, _, err := LoadAndValidate(cfgFile, "", "dev", []string{"set-crlf", "src/**/*.rs"}, flags)
	require.NoError(t, err)

	assert.Equal(t, converter.ActionSetCRLF, opts.Action)
	assert.Equal(t, "src/**/*.rs", opts.Pattern, "positional pattern wins over config")
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, []string{"*.tmp", "build/", "!build/keep.txt"}, opts.IgnorePatterns)
	assert.Equal(t, converter.SourceGit, opts.SourceMode)
	assert.False(t, opts.CacheEnabled)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.TuiEnabled)
}

func TestLoadAndValidate_NoTuiWins(t *testing.T) {
	flags := newFlags(t, t.TempDir())
	require.NoError(t, flags.Set("tui", "true"))
	require.NoError(t, flags.Set("no-tui", "true"))

	opts, _, err := LoadAndValidate("", "", "dev", []string{"measure"}, flags)
	require.NoError(t, err)
	assert.False(t, opts.TuiEnabled)
}

func TestLoadAndValidate_Environment(t *testing.T) {
	t.Setenv("CRLF_CONCURRENCY", "6")
	t.Setenv("CRLF_OUTPUTFORMAT", "yaml")

	opts, _, err := LoadAndValidate("", "", "dev", []string{"measure"}, newFlags(t, t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 6, opts.Concurrency)
	assert.Equal(t, converter.OutputFormatYAML, opts.OutputFormat)

	flags := newFlags(t, t.TempDir())
	require.NoError(t, flags.Set("concurrency", "2"))
	opts, _, err = LoadAndValidate("", "", "dev", []string{"measure"}, flags)
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Concurrency, "flag beats environment")
}

func TestLoadAndValidate_Errors(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))

	testCases := []struct {
		name      string
		args      []string
		config    string
		setFlags  map[string]string
		inputDir  string
		errSubstr string
	}{
		{name: "missing action", args: nil, errSubstr: "action is required"},
		{name: "unknown action", args: []string{"explode"}, errSubstr: "explode"},
		{name: "input is a file", args: []string{"measure"}, inputDir: notADir, errSubstr: "is not a directory"},
		{name: "input missing", args: []string{"measure"}, inputDir: filepath.Join(t.TempDir(), "missing"), errSubstr: "does not exist"},
		{name: "invalid pattern", args: []string{"measure", "a/[b"}, errSubstr: "invalid pattern"},
		{name: "invalid ignore", setFlags: map[string]string{"ignore": "x/[y"}, args: []string{"measure"}, errSubstr: "invalid ignore pattern"},
		{name: "invalid onError", setFlags: map[string]string{"on-error": "explode"}, args: []string{"measure"}, errSubstr: "invalid onError"},
		{name: "invalid binaryMode", setFlags: map[string]string{"binary-mode": "maybe"}, args: []string{"measure"}, errSubstr: "invalid binaryMode"},
		{name: "invalid outputFormat", setFlags: map[string]string{"output-format": "xml"}, args: []string{"measure"}, errSubstr: "invalid outputFormat"},
		{name: "invalid cacheFormat", setFlags: map[string]string{"cache-format": "xml"}, args: []string{"measure"}, errSubstr: "invalid cacheFormat"},
		{name: "negative concurrency", setFlags: map[string]string{"concurrency": "-1"}, args: []string{"measure"}, errSubstr: "cannot be negative"},
		{name: "invalid sourceMode", config: "sourceMode: svn\n", args: []string{"measure"}, errSubstr: "invalid sourceMode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inputDir := tc.inputDir
			if inputDir == "" {
				inputDir = t.TempDir()
			}
			flags := newFlags(t, inputDir)
			for name, value := range tc.setFlags {
				require.NoError(t, flags.Set(name, value))
			}
			cfgFile := ""
			if tc.config != "" {
				cfgFile = createTempConfigFile(t, tc.config)
			}

			_, logger, err := LoadAndValidate(cfgFile, "", "dev", tc.args, flags)
			require.Error(t, err)
			assert.NotNil(t, logger)
			assert.Contains(t, err.Error(), tc.errSubstr)
		})
	}
}

func TestLoadAndValidate_MissingConfigFile(t *testing.T) {
	_, _, err := LoadAndValidate(filepath.Join(t.TempDir(), "absent.yaml"), "", "dev", []string{"measure"}, newFlags(t, t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestIsValidEnumValue(t *testing.T) {
	assert.True(t, isValidEnumValue(converter.OnErrorStop, []converter.OnErrorMode{converter.OnErrorContinue, converter.OnErrorStop}))
	assert.False(t, isValidEnumValue(converter.OnErrorMode("STOP"), []converter.OnErrorMode{converter.OnErrorContinue, converter.OnErrorStop}))
}
