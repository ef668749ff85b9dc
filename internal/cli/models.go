// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Catalogue commands: models list, pull, rm.

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/download"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/inference"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

func newModelsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show the model catalogue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalogue models and whether they are downloaded",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return listModels(cmd.OutOrStdout(), e)
		},
	})
	return cmd
}

func listModels(w io.Writer, e *env) error {
	fmt.Fprintln(w, TitleStyle.Render(e.printer.Sprintf(i18n.ModelsTitle)))
	for _, d := range catalog.All() {
		marker := MarkerMissing()
		if e.store.Exists(d.FileName) {
			marker = MarkerOK()
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			marker,
			util.PadRight(d.ID, 30),
			util.PadRight(d.DisplayName, 34),
			DimStyle.Render(util.FormatMB(d.ExpectedSizeMB)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, LabelStyle.Render("Folder")+ValueStyle.Render(e.store.Dir()))
	if free, err := e.store.FreeSpace(); err == nil {
		fmt.Fprintln(w, DimStyle.Render(e.printer.Sprintf(i18n.FreeSpace, i18n.Int(util.BytesToMB(free)))))
	}
	return nil
}

// resolveModel finds a catalogue entry by ID or file name.
func resolveModel(ref string) (catalog.Descriptor, error) {
	d, ok := catalog.Find(ref)
	if !ok {
		return catalog.Descriptor{}, NewNotFoundError("model", ref)
	}
	return d, nil
}

// =============================================================================
// PULL
// =============================================================================

func newPullCmd(opts *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pull <id|file>",
		Short: "Download a catalogue model",
		Example: `  konsulton pull qwen2.5-0.5B-Instruct
  konsulton pull hammer2p1_05b_.task --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveModel(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.store.Exists(d.FileName) && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", MarkerOK(), d.FileName, DimStyle.Render("(already downloaded, use --force to replace)"))
				return nil
			}
			if err := e.store.CheckAccess(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return pullModel(ctx, cmd.OutOrStdout(), e.pipeline, d, IsStdoutTTY())
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "download again even if the file exists")
	return cmd
}

// downloader is the part of the pipeline pull needs.
type downloader interface {
	Download(ctx context.Context, d catalog.Descriptor) <-chan download.State
	Dir() string
}

// pullModel drains one download, printing progress. On a terminal the
// progress line is rewritten in place; otherwise a line is printed every
// few seconds.
func pullModel(ctx context.Context, w io.Writer, dl downloader, d catalog.Descriptor, tty bool) error {
	every := 5 * time.Second
	if tty {
		every = progressInterval
	}
	limiter := rate.NewLimiter(rate.Every(every), 1)

	fmt.Fprintf(w, "%s (%s)\n", nameColor(d.DisplayName), util.FormatMB(d.ExpectedSizeMB))

	var last download.State
	printed := false
	for s := range dl.Download(ctx, d) {
		last = s
		if s.Phase != download.PhaseDownloading || !limiter.Allow() {
			continue
		}
		line := fmt.Sprintf("  %3d%%  %d/%d MB", s.Percent, s.DownloadedMB, s.TotalMB)
		if s.TotalMB == 0 {
			line = fmt.Sprintf("  %d MB", s.DownloadedMB)
		}
		if tty {
			fmt.Fprintf(w, "\r%-40s", line)
		} else {
			fmt.Fprintln(w, line)
		}
		printed = true
	}
	if tty && printed {
		fmt.Fprintln(w)
	}

	if last.Phase != download.PhaseSuccess {
		return &DownloadError{Model: d.ID, Kind: last.Kind, Message: last.Message}
	}
	fmt.Fprintf(w, "%s %s\n", MarkerOK(), filepath.Join(dl.Dir(), d.FileName))
	return nil
}

// =============================================================================
// RM
// =============================================================================

// forgetTimeout bounds the backend cleanup after a delete.
const forgetTimeout = 3 * time.Second

// forgetModel removes the backend's registered copy of a deleted file.
// Failures are logged only; the file itself is already gone.
func forgetModel(ctx context.Context, e *env, path string) {
	ctx, cancel := context.WithTimeout(ctx, forgetTimeout)
	defer cancel()
	if err := inference.Forget(ctx, e.cfg, path); err != nil {
		log.Printf("BACKEND_FORGET_SKIPPED | path=%s err=%v", path, err)
	}
}

func newRmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id|file>",
		Aliases: []string{"delete"},
		Short:   "Delete a downloaded model",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveModel(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer e.Close()

			removed, err := e.store.Delete(d.FileName)
			if err != nil {
				return err
			}
			if !removed {
				return NewNotFoundError("model file", d.FileName)
			}
			forgetModel(cmd.Context(), e, e.store.Path(d.FileName))
			fmt.Fprintln(cmd.OutOrStdout(), MarkerOK(), e.printer.Sprintf(i18n.Deleted, d.FileName))
			return nil
		},
	}
}
