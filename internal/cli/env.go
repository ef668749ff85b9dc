// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/conversation"
	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/inference"
	"github.com/jeranaias/konsulton-tui/internal/prefs"
	"github.com/jeranaias/konsulton-tui/internal/storage"
	"github.com/jeranaias/konsulton-tui/internal/store"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// env holds the collaborators shared by the commands.
type env struct {
	cfg      *config.Config
	printer  *i18n.Printer
	store    *store.Store
	prefs    *prefs.Store
	pipeline *download.Pipeline

	// granted is true when the models directory passed CheckAccess.
	granted bool
}

// openEnv loads the config and opens the preferences database and the
// models directory. Without models.dir the root granted on a previous run
// is reused.
func openEnv(ctx context.Context, opts *globalOptions) (*env, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	printer := i18n.NewPrinter(cfg.UI.Locale)

	prefsPath, err := config.PrefsPath()
	if err != nil {
		return nil, err
	}
	ps, err := prefs.Open(prefsPath)
	if err != nil {
		return nil, WrapError(err, "open preferences")
	}

	root := cfg.Models.Dir
	if root == "" {
		root = grantedRoot(ctx, ps)
	}
	st, err := store.Open(root)
	if err != nil {
		ps.Close()
		return nil, err
	}

	granted := false
	if err := st.CheckAccess(); err != nil {
		log.Printf("STORAGE_ACCESS_DENIED | dir=%s err=%v", st.Dir(), err)
	} else {
		granted = true
		if err := ps.SetStorageFullPath(ctx, st.Dir()); err != nil {
			log.Printf("PREFS_WRITE_FAILED | key=storage_full_path err=%v", err)
		}
	}

	pipeline := download.NewPipeline(download.Config{
		Dir:             st.Dir(),
		ResponseTimeout: time.Duration(cfg.Models.ResponseTimeout) * time.Second,
		UserAgent:       cfg.Models.UserAgent,
		Printer:         printer,
	})

	return &env{cfg: cfg, printer: printer, store: st, prefs: ps, pipeline: pipeline, granted: granted}, nil
}

// grantedRoot returns the remembered storage root if it is still an
// existing absolute directory, and "" otherwise.
func grantedRoot(ctx context.Context, ps *prefs.Store) string {
	dir, ok, err := ps.StorageFullPath(ctx)
	if err != nil {
		log.Printf("PREFS_READ_FAILED | key=storage_full_path err=%v", err)
		return ""
	}
	if !ok || !filepath.IsAbs(dir) {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Printf("STORAGE_ROOT_STALE | dir=%s", dir)
		return ""
	}
	return dir
}

// newEngine builds a conversation engine on the configured backend.
func (e *env) newEngine() (*conversation.Engine, error) {
	factory, err := inference.NewFactory(e.cfg)
	if err != nil {
		return nil, err
	}
	return conversation.New(conversation.Options{
		Factory:       factory,
		Prefs:         e.prefs,
		Printer:       e.printer,
		SystemPrompt:  e.cfg.Chat.SystemPrompt,
		HistoryWindow: e.cfg.Chat.HistoryWindow,
	}), nil
}

// transcripts opens the transcript directory.
func (e *env) transcripts() (*storage.TranscriptStore, error) {
	dir, err := config.TranscriptsDir()
	if err != nil {
		return nil, err
	}
	return storage.NewTranscriptStore(dir, e.cfg.Chat.MaxTranscripts)
}

// rememberedModel returns the stored model path if storage access was
// granted and the file still exists.
func (e *env) rememberedModel(ctx context.Context) (string, bool) {
	if !e.granted {
		return "", false
	}
	path, ok, err := e.prefs.ModelPath(ctx)
	if err != nil || !ok {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", false
	}
	return path, true
}

func (e *env) Close() error {
	return e.prefs.Close()
}
