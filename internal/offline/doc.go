// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline implements konsulton's offline mode.
//
// Offline mode is for machines that already hold their models: downloads
// are refused and the inference backend must be on a loopback address.
//
// # Usage
//
//	offline.SetOfflineMode(cfg.Offline)
//
//	if err := offline.ValidateURL(d.DownloadURL); err != nil {
//		return err
//	}
package offline
