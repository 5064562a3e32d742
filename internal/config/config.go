package config

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/fiberui-dev/fiberui/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "fiberui.json"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "FIBERUI"

	// DefaultRegistry selects the registry compiled into the binary.
	DefaultRegistry = "embedded"

	// DefaultTarget is the directory, relative to the project root, that component files are written under.
	DefaultTarget = "src"

	// DefaultConcurrency is the default number of files copied in parallel.
	DefaultConcurrency = 4

	// MaxConcurrency bounds install.concurrency.
	MaxConcurrency = 64
)

// Config represents the complete fiberui.json configuration.
type Config struct {
	// Registry is the registry location: "embedded", a directory,
	// an http(s) URL or an s3://bucket/prefix URL.
	Registry string `json:"registry,omitempty" mapstructure:"registry"`

	// Target is the directory component files are written under.
	Target string `json:"target,omitempty" mapstructure:"target"`

	// Paths remaps the leading directory of registry file paths,
	// e.g. {"components": "ui"} writes components/button.tsx to ui/button.tsx.
	Paths map[string]string `json:"paths,omitempty" mapstructure:"paths"`

	// Install contains installation behavior.
	Install InstallConfig `json:"install,omitempty" mapstructure:"install"`

	// Installed is the list of installed components.
	Installed []string `json:"installed,omitempty" mapstructure:"installed"`

	// Metrics contains metrics export settings.
	Metrics MetricsConfig `json:"metrics,omitempty" mapstructure:"metrics"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" mapstructure:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// InstallConfig contains file materialization settings.
type InstallConfig struct {
	// Overwrite replaces existing files instead of skipping them.
	Overwrite bool `json:"overwrite,omitempty" mapstructure:"overwrite"`

	// Concurrency is the number of files copied in parallel.
	Concurrency int `json:"concurrency,omitempty" mapstructure:"concurrency"`
}

// MetricsConfig contains Prometheus export settings.
type MetricsConfig struct {
	// Textfile is a path the CLI writes metrics to after each command,
	// in the node_exporter textfile collector format.
	Textfile string `json:"textfile,omitempty" mapstructure:"textfile"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty" mapstructure:"format"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Registry: DefaultRegistry,
		Target:   DefaultTarget,
		Paths: map[string]string{
			"components": "components",
			"hooks":      "hooks",
			"lib":        "lib",
		},
		Install: InstallConfig{
			Concurrency: DefaultConcurrency,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for fiberui.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
// Values can be overridden with FIBERUI_* environment variables,
// e.g. FIBERUI_INSTALL_CONCURRENCY=8.
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotAProject).
				WithDetail("No fiberui.json found in " + filepath.Dir(configPath)).
				WithSuggestion("Run 'fiberui init' to set up this project")
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse fiberui.json: " + err.Error()).
			WithSuggestion("Check that fiberui.json is valid JSON").
			Wrap(err)
	}

	return decode(v, configPath)
}

// Defaults returns the configuration of a project in dir that has no
// fiberui.json yet: defaults plus FIBERUI_* environment overrides.
// Saving it creates dir/fiberui.json.
func Defaults(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	return decode(newViper(), filepath.Join(abs, ConfigFileName))
}

// LoadOrDefault loads the config of the project containing startDir. When
// no fiberui.json exists in startDir or its parents it returns Defaults
// for startDir and found is false.
func LoadOrDefault(startDir string) (cfg *Config, found bool, err error) {
	root, err := FindProjectRoot(startDir)
	if err != nil {
		if errors.HasCode(err, errors.CodeNotAProject) {
			cfg, err = Defaults(startDir)
			return cfg, false, err
		}
		return nil, false, err
	}
	cfg, err = Load(root)
	return cfg, err == nil, err
}

func decode(v *viper.Viper, configPath string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to decode fiberui.json: " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = configPath
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newViper returns a viper instance with defaults registered, so that
// environment overrides apply to every known key.
func newViper() *viper.Viper {
	v := viper.New()
	def := New()
	v.SetDefault("registry", def.Registry)
	v.SetDefault("target", def.Target)
	v.SetDefault("paths", def.Paths)
	v.SetDefault("install.overwrite", def.Install.Overwrite)
	v.SetDefault("install.concurrency", def.Install.Concurrency)
	v.SetDefault("installed", []string{})
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigSave).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigSave).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()
	if c.Registry == "" {
		c.Registry = def.Registry
	}
	if c.Target == "" {
		c.Target = def.Target
	}
	if c.Paths == nil {
		c.Paths = map[string]string{}
	}
	for k, v := range def.Paths {
		if c.Paths[k] == "" {
			c.Paths[k] = v
		}
	}
	if c.Install.Concurrency == 0 {
		c.Install.Concurrency = def.Install.Concurrency
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Install.Concurrency < 1 || c.Install.Concurrency > MaxConcurrency {
		return errors.New(errors.CodeConfigInvalidValue).
			WithDetail("install.concurrency must be between 1 and 64")
	}
	for key, dir := range c.Paths {
		if dir == "" || path.IsAbs(dir) || filepath.IsAbs(dir) || escapes(dir) {
			return errors.New(errors.CodeConfigInvalidValue).
				WithDetail("paths." + key + " must be a relative path inside the target directory")
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New(errors.CodeConfigInvalidValue).
			WithDetail("log.format must be \"text\" or \"json\"")
	}
	return nil
}

// TargetPath returns the absolute path to the directory component files are written under.
func (c *Config) TargetPath() string {
	target := c.Target
	if target == "" {
		target = DefaultTarget
	}
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(c.Dir(), target)
}

// DestPath maps a registry file path to its path relative to TargetPath,
// applying the Paths remapping to its leading directory.
func (c *Config) DestPath(file string) string {
	file = path.Clean(filepath.ToSlash(file))
	head, rest, found := strings.Cut(file, "/")
	if !found {
		return file
	}
	if mapped, ok := c.Paths[head]; ok && mapped != "" {
		return path.Join(filepath.ToSlash(mapped), rest)
	}
	return file
}

// MarkInstalled records component names as installed, keeping the list sorted and unique.
func (c *Config) MarkInstalled(names ...string) {
	all := append(slices.Clone(c.Installed), names...)
	slices.Sort(all)
	c.Installed = slices.Compact(all)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing fiberui.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeNotAProject).
				WithDetail("No fiberui.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'fiberui init' to set up this project")
		}
		dir = parent
	}
}

func escapes(p string) bool {
	p = path.Clean(filepath.ToSlash(p))
	return p == ".." || strings.HasPrefix(p, "../")
}
