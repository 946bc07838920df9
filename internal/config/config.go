// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/svasista-ms/wdkbuild/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "wdkbuild"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

type (
	// BuildConfig holds build invocation defaults.
	BuildConfig struct {
		// DefaultProfile is used when --profile is not passed.
		DefaultProfile string `mapstructure:"default_profile"`
	}

	// ToolsConfig overrides the external tool program names.
	ToolsConfig struct {
		Cargo    string `mapstructure:"cargo"`
		Stampinf string `mapstructure:"stampinf"`
		Inf2cat  string `mapstructure:"inf2cat"`
		Certmgr  string `mapstructure:"certmgr"`
		Makecert string `mapstructure:"makecert"`
		Signtool string `mapstructure:"signtool"`
	}

	// WdkConfig points at the Windows Driver Kit installation.
	WdkConfig struct {
		// ContentRoot is the kit install root; empty means auto-detect.
		ContentRoot string `mapstructure:"content_root"`
		// Version pins a kit version; empty means newest installed.
		Version string `mapstructure:"version"`
	}

	// UIConfig holds output settings.
	UIConfig struct {
		// Verbose enables debug logging by default.
		Verbose bool `mapstructure:"verbose"`
	}

	// Config is the complete application configuration.
	Config struct {
		Build BuildConfig `mapstructure:"build"`
		Tools ToolsConfig `mapstructure:"tools"`
		Wdk   WdkConfig   `mapstructure:"wdk"`
		UI    UIConfig    `mapstructure:"ui"`
	}
)

var (
	// configDirOverride lets tests redirect the config directory.
	configDirOverride string
	// configFilePathOverride forces loading from a specific file (--config).
	configFilePathOverride string
)

// SetConfigDirOverride redirects the config directory lookup (tests only).
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// SetConfigFilePathOverride forces loading from a specific config file.
func SetConfigFilePathOverride(path string) { configFilePathOverride = path }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{DefaultProfile: "debug"},
		Tools: ToolsConfig{
			Cargo:    "cargo",
			Stampinf: "stampinf",
			Inf2cat:  "inf2cat",
			Certmgr:  "certmgr",
			Makecert: "makecert",
			Signtool: "signtool",
		},
	}
}

// ConfigDir returns the wdkbuild configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration file and WDKBUILD_* environment variables,
// layered over the built-in defaults. A missing config file is not an
// error; an unreadable or invalid one is.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("build.default_profile", defaults.Build.DefaultProfile)
	v.SetDefault("tools.cargo", defaults.Tools.Cargo)
	v.SetDefault("tools.stampinf", defaults.Tools.Stampinf)
	v.SetDefault("tools.inf2cat", defaults.Tools.Inf2cat)
	v.SetDefault("tools.certmgr", defaults.Tools.Certmgr)
	v.SetDefault("tools.makecert", defaults.Tools.Makecert)
	v.SetDefault("tools.signtool", defaults.Tools.Signtool)
	v.SetDefault("wdk.content_root", "")
	v.SetDefault("wdk.version", "")
	v.SetDefault("ui.verbose", false)

	v.SetEnvPrefix("WDKBUILD")
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		v.SetConfigFile(configFilePathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePathOverride).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file is valid TOML").
				Wrap(err).
				BuildError()
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, issue.WrapWithOperation(err, "resolve config directory")
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check that the file is valid TOML").
					Wrap(err).
					BuildError()
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithOperation(err, "decode configuration")
	}
	return &cfg, nil
}

// BuildTools converts the tool overrides into the names the orchestrator
// invokes, substituting defaults for any empty entries.
func (c *Config) BuildTools() ToolsConfig {
	tools := c.Tools
	defaults := DefaultConfig().Tools
	if tools.Cargo == "" {
		tools.Cargo = defaults.Cargo
	}
	if tools.Stampinf == "" {
		tools.Stampinf = defaults.Stampinf
	}
	if tools.Inf2cat == "" {
		tools.Inf2cat = defaults.Inf2cat
	}
	if tools.Certmgr == "" {
		tools.Certmgr = defaults.Certmgr
	}
	if tools.Makecert == "" {
		tools.Makecert = defaults.Makecert
	}
	if tools.Signtool == "" {
		tools.Signtool = defaults.Signtool
	}
	return tools
}
