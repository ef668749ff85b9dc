// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// transcripts.go - Saved conversation commands.
//
// Command: transcripts [subcommand]
//
// Subcommands:
//   list (default)   List saved transcripts, newest first
//   show <id|n>      Print a transcript as markdown (n = position in list, 1-based)
//   rm <id>          Delete a transcript
//   clear            Delete every transcript
//
// Examples:
//   konsulton transcripts
//   konsulton transcripts list --search resep
//   konsulton transcripts show 1 --raw

package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/storage"
)

// openTranscripts opens the transcript directory without touching the
// models directory or preferences.
func openTranscripts(opts *globalOptions) (*storage.TranscriptStore, *config.Config, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	dir, err := config.TranscriptsDir()
	if err != nil {
		return nil, nil, err
	}
	ts, err := storage.NewTranscriptStore(dir, cfg.Chat.MaxTranscripts)
	if err != nil {
		return nil, nil, WrapError(err, "open transcripts")
	}
	return ts, cfg, nil
}

// loadTranscript accepts either a transcript ID or a 1-based list position.
func loadTranscript(ts *storage.TranscriptStore, ref string) (*storage.Transcript, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		t, err := ts.LoadByIndex(n - 1)
		if errors.Is(err, storage.ErrTranscriptNotFound) {
			return nil, NewNotFoundError("transcript", ref)
		}
		return t, err
	}
	t, err := ts.Load(ref)
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		return nil, NewNotFoundError("transcript", ref)
	}
	return t, err
}

func newTranscriptsCmd(opts *globalOptions) *cobra.Command {
	var search string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved transcripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, _, err := openTranscripts(opts)
			if err != nil {
				return err
			}
			metas, err := ts.Search(search)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(metas))
			if len(metas) == 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "only transcripts containing this text")

	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"history"},
		Short:   "Browse saved conversations",
		Args:    cobra.NoArgs,
		RunE:    list.RunE,
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only transcripts containing this text")

	var raw bool
	show := &cobra.Command{
		Use:   "show <id|n>",
		Short: "Print a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, cfg, err := openTranscripts(opts)
			if err != nil {
				return err
			}
			t, err := loadTranscript(ts, args[0])
			if err != nil {
				return err
			}
			md := t.ExportMarkdown()
			if raw || !IsStdoutTTY() {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), replyRenderer(cfg.UI.RenderMarkdown)(md))
			return nil
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "print markdown source")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a transcript",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, _, err := openTranscripts(opts)
			if err != nil {
				return err
			}
			if err := ts.Delete(args[0]); err != nil {
				if errors.Is(err, storage.ErrTranscriptNotFound) {
					return NewNotFoundError("transcript", args[0])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MarkerOK(), args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, _, err := openTranscripts(opts)
			if err != nil {
				return err
			}
			if err := ts.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MarkerOK(), ts.BaseDir)
			return nil
		},
	}

	cmd.AddCommand(list, show, rm, clearCmd)
	return cmd
}
