// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/metrics"
	"github.com/jeranaias/konsulton-tui/internal/store"
	"github.com/jeranaias/konsulton-tui/internal/tasks"
	"github.com/jeranaias/konsulton-tui/internal/ui/app"
	"github.com/jeranaias/konsulton-tui/internal/ui/styles"
)

const (
	// progressInterval is the minimum gap between repainted progress events.
	progressInterval = 100 * time.Millisecond

	taskHistory = 20
)

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
}

// progressListener forwards task updates to out. Downloading events are
// dropped while the limiter has no token; phase changes always pass.
func progressListener(ctx context.Context, out chan<- tasks.Update, limiter *rate.Limiter) tasks.Listener {
	return func(u tasks.Update) {
		if u.State.Phase == download.PhaseDownloading && !limiter.Allow() {
			return
		}
		select {
		case out <- u:
		case <-ctx.Done():
		}
	}
}

// runTUI runs the bubbletea program, the download runner, the directory
// watcher and the optional metrics listener until the program exits.
func runTUI(ctx context.Context, opts *globalOptions) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	logPath, err := config.LogPath()
	if err != nil {
		return err
	}
	logFile, err := tea.LogToFile(logPath, "konsulton")
	if err != nil {
		return WrapError(err, "open log file")
	}
	defer logFile.Close()

	e, err := openEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	engine, err := e.newEngine()
	if err != nil {
		return err
	}
	defer engine.Dispose()

	transcripts, err := e.transcripts()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	updates := make(chan tasks.Update, 64)
	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)
	queue := tasks.NewQueue(taskHistory)
	runner := tasks.NewRunner(queue, e.pipeline, progressListener(gctx, updates, limiter))
	runner.Start(gctx)
	defer runner.Stop()

	snapshots, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	changes, err := e.store.Watch(gctx, store.DefaultDebounce)
	if err != nil {
		log.Printf("WATCH_UNAVAILABLE | dir=%s err=%v", e.store.Dir(), err)
		changes = nil
	}

	_, autoLoad := e.rememberedModel(ctx)
	root := app.New(app.Options{
		Ctx:            gctx,
		Theme:          styles.NewTheme(e.cfg.UI.Theme),
		Printer:        e.printer,
		Store:          e.store,
		Queue:          queue,
		Catalog:        catalog.All(),
		Engine:         engine,
		Transcripts:    transcripts,
		Updates:        updates,
		Snapshots:      snapshots,
		Changes:        changes,
		RenderMarkdown: e.cfg.UI.RenderMarkdown,
		AutoLoad:       autoLoad,
	})

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	if addr := e.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, addr)
		})
	}

	log.Printf("TUI_START | models_dir=%s backend=%s auto_load=%t", e.store.Dir(), e.cfg.Inference.Backend, autoLoad)
	return g.Wait()
}
