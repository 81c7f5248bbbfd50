// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/xblaunpack/config.cue (~/.config by default)
// on Linux, ~/Library/Application Support/xblaunpack/config.cue on macOS and
// %APPDATA%\xblaunpack\config.cue on Windows, falling back to ./config.cue. Values can be
// overridden with XBLAUNPACK_<SECTION>_<KEY> environment variables.
//
// Files are validated against an embedded CUE schema (config_schema.cue) before being
// merged into Viper, so typos and wrong types are reported with their field path.
package config
