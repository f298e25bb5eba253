package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
	"github.com/PaddyThePaddy/crlf/pkg/converter/cache"
	"github.com/PaddyThePaddy/crlf/pkg/util"
)

const (
	EnvPrefix         = "CRLF"
	DefaultConfigName = "crlf"
)

// flagKeys maps command-line flag names onto the viper keys they override.
// --ignore is absent: its values are appended to the configured list instead.
var flagKeys = map[string]string{
	"dir":           "inputPath",
	"verbose":       "verbose",
	"concurrency":   "concurrency",
	"on-error":      "onError",
	"binary-mode":   "binaryMode",
	"skip-vendor":   "skipVendor",
	"output-format": "outputFormat",
	"dry-run":       "dryRun",
	"cache":         "cache",
	"cache-file":    "cacheFile",
	"cache-format":  "cacheFormat",
}

// LoadAndValidate merges defaults, the config file, the selected profile,
// CRLF_* environment variables and flags into converter.Options.
// args are the positional arguments: the action and an optional pattern.
// The returned logger is usable even when err is non-nil.
func LoadAndValidate(cfgFile, profileName, appVersion string, args []string, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	tempLogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	tempLogger := slog.New(tempLogHandler)

	if len(args) == 0 {
		return opts, tempLogger, fmt.Errorf("%w: an action is required (one of %v)", converter.ErrConfigValidation, converter.Actions)
	}
	action, err := converter.ParseAction(args[0])
	if err != nil {
		return opts, tempLogger, err
	}

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			err := fmt.Errorf("failed to load profile '%s' settings from config file '%s'", profileName, v.ConfigFileUsed())
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for flagName, key := range flagKeys {
		flag := flags.Lookup(flagName)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", flagName))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	opts.Action = action

	if len(args) > 1 && args[1] != "" {
		opts.Pattern = args[1]
	}
	if flags.Changed("dir") {
		if dir, _ := flags.GetString("dir"); dir != "" {
			opts.InputPath = dir
		}
	}
	if flags.Changed("ignore") {
		extra, _ := flags.GetStringArray("ignore")
		opts.IgnorePatterns = append(opts.IgnorePatterns, extra...)
	}
	if flags.Changed("git-file") {
		if gitFile, _ := flags.GetBool("git-file"); gitFile {
			opts.SourceMode = converter.SourceGit
		}
	}
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("dry-run") {
		opts.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("cache") {
		opts.CacheEnabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("tui") {
		opts.TuiEnabled, _ = flags.GetBool("tui")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loaded",
		slog.String("action", string(opts.Action)),
		slog.String("inputPath", opts.InputPath),
		slog.String("pattern", opts.Pattern),
		slog.String("sourceMode", string(opts.SourceMode)),
		slog.Int("concurrency", opts.Concurrency),
		slog.Bool("cache", opts.CacheEnabled),
		slog.String("profile", opts.ProfileName))
	return opts, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pattern", converter.DefaultPattern)
	v.SetDefault("inputPath", converter.DefaultInputPath)
	v.SetDefault("sourceMode", string(converter.DefaultSourceMode))
	v.SetDefault("ignore", []string{})
	v.SetDefault("skipVendor", converter.DefaultSkipVendor)
	v.SetDefault("binaryMode", string(converter.DefaultBinaryMode))

	v.SetDefault("dryRun", converter.DefaultDryRun)
	v.SetDefault("verbose", converter.DefaultVerbose)
	v.SetDefault("tuiEnabled", converter.DefaultTuiEnabled)
	v.SetDefault("onError", string(converter.DefaultOnErrorMode))
	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))

	v.SetDefault("concurrency", converter.DefaultConcurrency)
	v.SetDefault("cache", converter.DefaultCacheEnabled)
	v.SetDefault("cacheFile", "")
	v.SetDefault("cacheFormat", converter.DefaultCacheFormat)
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
// Case-sensitive comparison.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions checks the merged values and fills in derived ones:
// absolute input path, concurrency, cache path. Errors wrap converter.ErrConfigValidation.
func validateAndDeriveOptions(opts *converter.Options, logger *slog.Logger) error {
	fail := func(key string, err error) error {
		logger.Error(err.Error(), slog.String("key", key))
		return err
	}

	if opts.InputPath == "" {
		opts.InputPath = converter.DefaultInputPath
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fail("inputPath", fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err))
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return fail("inputPath", fmt.Errorf("%w: input path '%s' does not exist or cannot be accessed: %w", converter.ErrConfigValidation, opts.InputPath, err))
	}
	if !info.IsDir() {
		return fail("inputPath", fmt.Errorf("%w: input path '%s' is not a directory", converter.ErrConfigValidation, opts.InputPath))
	}

	if opts.Pattern == "" {
		opts.Pattern = converter.DefaultPattern
	}
	if !util.ValidatePattern(opts.Pattern) {
		return fail("pattern", fmt.Errorf("%w: invalid pattern '%s'", converter.ErrConfigValidation, opts.Pattern))
	}
	for _, p := range opts.IgnorePatterns {
		if !util.ValidatePattern(strings.TrimPrefix(p, "!")) {
			return fail("ignore", fmt.Errorf("%w: invalid ignore pattern '%s'", converter.ErrConfigValidation, p))
		}
	}

	if !isValidEnumValue(opts.SourceMode, []converter.SourceMode{converter.SourceGlob, converter.SourceGit}) {
		return fail("sourceMode", fmt.Errorf("%w: invalid sourceMode '%s'", converter.ErrConfigValidation, opts.SourceMode))
	}
	if !isValidEnumValue(opts.OnErrorMode, []converter.OnErrorMode{converter.OnErrorContinue, converter.OnErrorStop}) {
		return fail("onError", fmt.Errorf("%w: invalid onError mode '%s' (expected continue|stop)", converter.ErrConfigValidation, opts.OnErrorMode))
	}
	if !isValidEnumValue(opts.BinaryMode, []converter.BinaryMode{converter.BinarySkip, converter.BinaryProcess, converter.BinaryError}) {
		return fail("binaryMode", fmt.Errorf("%w: invalid binaryMode '%s' (expected skip|process|error)", converter.ErrConfigValidation, opts.BinaryMode))
	}
	if !isValidEnumValue(opts.OutputFormat, []converter.OutputFormat{converter.OutputFormatText, converter.OutputFormatJSON, converter.OutputFormatYAML}) {
		return fail("outputFormat", fmt.Errorf("%w: invalid outputFormat '%s' (expected text|json|yaml)", converter.ErrConfigValidation, opts.OutputFormat))
	}
	if !isValidEnumValue(strings.ToLower(opts.CacheFormat), []string{cache.CacheFormatGob, cache.CacheFormatJSON}) {
		return fail("cacheFormat", fmt.Errorf("%w: invalid cacheFormat '%s' (expected gob|json)", converter.ErrConfigValidation, opts.CacheFormat))
	}
	opts.CacheFormat = strings.ToLower(opts.CacheFormat)

	if opts.Concurrency < 0 {
		return fail("concurrency", fmt.Errorf("%w: concurrency cannot be negative (%d)", converter.ErrConfigValidation, opts.Concurrency))
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = runtime.NumCPU()
	}

	if opts.CacheEnabled {
		if opts.CacheFilePath == "" {
			opts.CacheFilePath = filepath.Join(opts.InputPath, converter.CacheFileName)
		} else if abs, err := filepath.Abs(opts.CacheFilePath); err == nil {
			opts.CacheFilePath = abs
		}
		if opts.Action.IsConversion() {
			logger.Debug("Cache only applies to measure; ignored for conversions", slog.String("action", string(opts.Action)))
		}
	}

	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose logging disables the TUI")
		opts.TuiEnabled = false
	}
	return nil
}
