// Package config assembles the operator-facing RunnerConfig from CLI flags
// (internal/cli) layered over an optional YAML config file, the way
// gestalt/internal/config's settings.go layers defaults-then-file-then-
// overrides. CLI flags always win (spec.md §6 "CLI flags always win").
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"watchloop/internal/cli"
	"watchloop/internal/colorline"
	"watchloop/internal/globfilter"
	"watchloop/internal/process"
)

// DefaultConfigFile is the filename looked up in the current directory
// when --config is not given.
const DefaultConfigFile = ".watchexec.yml"

const (
	defaultDebounce = 200 * time.Millisecond
	defaultTimeout  = 3600 * time.Second
)

// FileConfig is the YAML shape of an optional config file. Every scalar
// field is a pointer so an absent key is distinguishable from an explicit
// zero value, mirroring the defaults-then-overrides layering pattern; list
// fields are plain slices, nil when the key is absent.
type FileConfig struct {
	Watch           []string `yaml:"watch"`
	Ext             []string `yaml:"ext"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	NoVCSIgnore     *bool    `yaml:"no_vcs_ignore"`
	NoDefaultIgnore *bool    `yaml:"no_default_ignore"`
	NoFollowSymlink *bool    `yaml:"no_follow_symlink"`
	Clear           *bool    `yaml:"clear"`
	Debounce        *string  `yaml:"debounce"`
	Timeout         *string  `yaml:"timeout"`
	Restart         *bool    `yaml:"restart"`
	Signal          *string  `yaml:"signal"`
	Meta            *bool    `yaml:"meta"`
	Env             *bool    `yaml:"env"`
	Notify          *string  `yaml:"notify"`
	Postpone        *bool    `yaml:"postpone"`
	ClearEvents     *bool    `yaml:"clear_events"`
	OneShot         *bool    `yaml:"oneshot"`
	OneShotDB       *string  `yaml:"oneshot_db"`
	Verbose         *string  `yaml:"verbose"`
	Color           *string  `yaml:"color"`
	MetricsAddr     *string  `yaml:"metrics_addr"`
	Pty             *bool    `yaml:"pty"`
}

// LoadFile reads and parses a YAML config file. A missing file yields a
// zero FileConfig (every flag falls through to its built-in default); a
// malformed file is a configuration error (spec.md §7).
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &fc, nil
}

// RunnerConfig is the fully-resolved, validated configuration handed to
// the core. Nothing downstream of this struct touches flag or YAML
// parsing again.
type RunnerConfig struct {
	Roots           []string
	Command         []string
	Include         []string
	Exclude         []string
	NoVCSIgnore     bool
	NoDefaultIgnore bool
	FollowSymlinks  bool
	ClearScreen     bool
	Debounce        time.Duration
	Timeout         time.Duration
	Restart         bool
	Signal          os.Signal
	Meta            bool
	EnvExport       bool
	NotifyMsg       string
	Postpone        bool
	ClearEvents     bool
	OneShot         bool
	OneShotDB       string
	VerboseLevel    string
	Color           colorline.Mode
	MetricsAddr     string
	Pty             bool
}

// Merge layers file defaults under CLI flags and validates the result.
// A flag's UnsetDuration/empty-string sentinel means "fall through to the
// file value, else the built-in default".
func Merge(opts *cli.Options, file *FileConfig) (RunnerConfig, error) {
	if file == nil {
		file = &FileConfig{}
	}
	rc := RunnerConfig{}

	rc.Roots = firstNonEmpty(opts.Watch, file.Watch)
	rc.Include = append(extFilters(firstNonEmpty(opts.Ext, file.Ext)), firstNonEmpty(opts.Include, file.Include)...)
	rc.Exclude = firstNonEmpty(opts.Exclude, file.Exclude)

	rc.NoVCSIgnore = opts.NoVCSIgnore || boolOr(file.NoVCSIgnore, false)
	rc.NoDefaultIgnore = opts.NoDefaultIgnore || boolOr(file.NoDefaultIgnore, false)
	rc.FollowSymlinks = !(opts.NoFollowSymlink || boolOr(file.NoFollowSymlink, false))
	rc.ClearScreen = opts.ClearScreen || boolOr(file.Clear, false)
	rc.Restart = opts.Restart || boolOr(file.Restart, false)
	rc.Meta = opts.Meta || boolOr(file.Meta, false)
	rc.EnvExport = opts.Env || boolOr(file.Env, false)
	rc.Postpone = opts.Postpone || boolOr(file.Postpone, false)
	rc.ClearEvents = opts.ClearEvents || boolOr(file.ClearEvents, false)
	rc.OneShot = opts.OneShot || boolOr(file.OneShot, false)
	rc.Pty = opts.Pty || boolOr(file.Pty, false)

	debounce, err := resolveDuration(opts.Debounce, file.Debounce, defaultDebounce)
	if err != nil {
		return RunnerConfig{}, fmt.Errorf("config: debounce: %w", err)
	}
	rc.Debounce = debounce

	timeout, err := resolveDuration(opts.Timeout, file.Timeout, defaultTimeout)
	if err != nil {
		return RunnerConfig{}, fmt.Errorf("config: timeout: %w", err)
	}
	rc.Timeout = timeout

	signalName := stringOr(opts.Signal, file.Signal, "")
	sig, err := process.ParseSignal(signalName)
	if err != nil {
		return RunnerConfig{}, fmt.Errorf("config: signal: %w", err)
	}
	rc.Signal = sig

	rc.NotifyMsg = stringOr(opts.Notify, file.Notify, "")
	rc.OneShotDB = stringOr(opts.OneShotDB, file.OneShotDB, "")
	rc.VerboseLevel = stringOr(opts.Verbose, file.Verbose, "")
	rc.MetricsAddr = stringOr(opts.MetricsAddr, file.MetricsAddr, "")

	colorValue := stringOr(opts.Color, file.Color, "")
	colorMode, err := colorline.ParseMode(colorValue)
	if err != nil {
		return RunnerConfig{}, fmt.Errorf("config: color: %w", err)
	}
	rc.Color = colorMode

	rc.Command = opts.Command

	if len(rc.Roots) == 0 {
		return RunnerConfig{}, fmt.Errorf("config: at least one watch root is required")
	}
	if len(rc.Command) == 0 {
		return RunnerConfig{}, fmt.Errorf("config: a command is required")
	}
	if rc.OneShot && rc.OneShotDB == "" {
		return RunnerConfig{}, fmt.Errorf("config: --oneshot requires --oneshot-db")
	}
	return rc, nil
}

// BuildFilter compiles the primary GlobFilter from resolved include/exclude
// patterns plus the default ignore set unless disabled.
func BuildFilter(rc RunnerConfig, gitignorePatterns []string) (*globfilter.Filter, error) {
	exclude := append([]string{}, rc.Exclude...)
	if !rc.NoDefaultIgnore {
		exclude = append(exclude, globfilter.DefaultIgnore...)
	}
	if !rc.NoVCSIgnore {
		exclude = append(exclude, gitignorePatterns...)
	}
	return globfilter.New(rc.Include, exclude)
}

func extFilters(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, "*."+e)
	}
	return out
}

func firstNonEmpty(cli, file []string) []string {
	if len(cli) > 0 {
		return cli
	}
	return file
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(cliValue string, fileValue *string, fallback string) string {
	if cliValue != "" {
		return cliValue
	}
	if fileValue != nil && *fileValue != "" {
		return *fileValue
	}
	return fallback
}

func resolveDuration(cliValue time.Duration, fileValue *string, fallback time.Duration) (time.Duration, error) {
	if cliValue != cli.UnsetDuration {
		return cliValue, nil
	}
	if fileValue != nil && *fileValue != "" {
		return time.ParseDuration(*fileValue)
	}
	return fallback, nil
}
