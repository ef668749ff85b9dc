// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package download fetches catalogue models into the models directory and
// reports progress as a sequence of State events.
//
// # Key Types
//
//   - Pipeline: runs downloads for one directory
//   - State: one progress event (Starting, Downloading, Success, Error)
//   - Kind: why a download failed
//
// # Event Sequence
//
// Every download emits Starting first and exactly one Success or Error
// last. Bytes are written to "<file>.partial" and renamed into place only
// after the body has been read completely, so a half-written file never
// shows up as installed.
//
// # Usage
//
//	p := download.NewPipeline(download.DefaultConfig(st.Dir()))
//	for ev := range p.Download(ctx, desc) {
//	    render(ev)
//	}
package download
