// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML
// as the file format.
//
// Configuration is loaded from ~/.config/wdkbuild/config.toml (or the XDG
// equivalent on Linux, ~/Library/Application Support/wdkbuild/config.toml
// on macOS, %APPDATA%\wdkbuild\config.toml on Windows) and from WDKBUILD_*
// environment variables. It covers tool name overrides for machines where
// the WDK tools are not on PATH, the WDK installation root, the default
// build profile, and the verbosity default.
package config
