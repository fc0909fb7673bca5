// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates, and persists wokuchat configuration.
//
// Configuration lives in ~/.wokuchat/config.toml (TOML preferred, JSON
// fallback for older installs). Environment variables prefixed WOKUCHAT_
// override file values, which keeps secrets like the API key out of the
// config file entirely if the operator prefers.
package config
