// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage saves chat transcripts to disk.
//
// Each transcript is one JSON file named after its ID. Writes are atomic and
// the store keeps at most MaxTranscripts files, pruning the oldest.
//
// # Usage
//
//	store, err := storage.NewTranscriptStore(dir, 100)
//	id, err := store.Save(engine.Transcript(), "gemma-2b.gguf")
//
//	metas, err := store.List()
//	t, err := store.Load(metas[0].ID)
//	fmt.Print(t.ExportMarkdown())
package storage
