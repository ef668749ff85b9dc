// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store manages the directory downloaded model files live in.
//
// # Key Types
//
//   - Store: presence checks, listing and deletion of model files
//
// # Platform Notes
//
// FreeSpace and CheckAccess use golang.org/x/sys: Statfs and Access on
// unix, GetDiskFreeSpaceEx and a temporary file on Windows.
//
// # Usage
//
//	st, err := store.Open(cfg.Models.Dir)
//	if err != nil {
//	    return err
//	}
//	installed := st.ListInstalled(catalog.All())
package store
