// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the wokuchat application.
//
// It covers the three small concerns used across packages:
//
// String handling:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation (CJK aware)
//
// Conversion:
//   - IntToString, Int64ToString: numeric formatting for UI listings
//
// File operations:
//   - AtomicWriteFile: crash-safe writes with fsync
//
// # Usage
//
//	display := util.TruncateRunes(longText, 50)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
