// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat with input history.
//
// Command: chat [--model PATH]
//
// Slash commands:
//   /clear   Start over with a fresh greeting
//   /save    Save the conversation as a transcript
//   /help    Show commands
//   /quit    Exit (also /exit, Ctrl+C, Ctrl+D)

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/konsulton-tui/internal/config"
	"github.com/jeranaias/konsulton-tui/internal/conversation"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/metrics"
	"github.com/jeranaias/konsulton-tui/internal/storage"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal without the full-screen interface",
		Example: `  konsulton chat
  konsulton chat --model ~/models/hammer2p1_05b_.task`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), opts, modelPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model file to load (default: last used)")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// prompter reads one line of input.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// lineEditor provides input history and line editing.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor(historyFile string) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	ed := &lineEditor{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return ed
}

// Prompt reads a line and records it in the history.
func (ed *lineEditor) Prompt(prompt string) (string, error) {
	input, err := ed.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		ed.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (ed *lineEditor) Close() {
	if f, err := os.OpenFile(ed.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		ed.line.WriteHistory(f)
		f.Close()
	}
	ed.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession is one REPL run against an engine.
type chatSession struct {
	engine      *conversation.Engine
	transcripts *storage.TranscriptStore
	printer     *i18n.Printer
	out         io.Writer

	// render formats an assistant reply for the terminal.
	render func(string) string
}

func runChat(ctx context.Context, opts *globalOptions, modelPath string, out io.Writer) error {
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

	s := &chatSession{
		engine:      engine,
		transcripts: transcripts,
		printer:     e.printer,
		out:         out,
		render:      replyRenderer(e.cfg.UI.RenderMarkdown && IsStdoutTTY()),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if addr := e.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, addr)
		})
	}

	g.Go(func() error {
		defer cancel()
		if err := s.load(gctx, modelPath); err != nil {
			return err
		}
		historyFile, err := config.HistoryPath()
		if err != nil {
			return err
		}
		ed := newLineEditor(historyFile)
		defer ed.Close()
		return s.loop(gctx, ed)
	})
	return g.Wait()
}

// replyRenderer returns glamour rendering on a terminal and word wrapping
// otherwise.
func replyRenderer(markdown bool) func(string) string {
	plain := func(s string) string { return WrapText(s, 0) }
	if !markdown {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return plain
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return plain(s)
		}
		return strings.TrimRight(out, "\n")
	}
}

// load loads the model and prints the greeting.
func (s *chatSession) load(ctx context.Context, path string) error {
	fmt.Fprintln(s.out, DimStyle.Render(s.printer.Sprintf(i18n.LoadingModel)))
	if err := s.engine.LoadModel(ctx, path); err != nil {
		if snap := s.engine.Snapshot(); snap.HasError {
			return errors.New(snap.LastError)
		}
		return err
	}
	snap := s.engine.Snapshot()
	fmt.Fprintf(s.out, "%s %s\n\n", MarkerOK(), nameColor(filepath.Base(snap.ModelPath)))
	s.printLastReply()
	return nil
}

// loop reads input until quit, EOF or Ctrl+C.
func (s *chatSession) loop(ctx context.Context, in prompter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := in.Prompt("konsulton> ")
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and EOF both end the session.
			fmt.Fprintln(s.out)
			return nil
		}
		if !s.handle(ctx, strings.TrimSpace(input)) {
			return nil
		}
	}
}

// handle processes one input line and reports whether to keep going.
func (s *chatSession) handle(ctx context.Context, input string) bool {
	switch {
	case input == "":
		return true
	case strings.HasPrefix(input, "/"):
		return s.command(input)
	case strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit"):
		return false
	}

	// Ctrl+C while the model is answering cancels this turn only.
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	err := s.engine.SendMessage(turnCtx, input)
	stop()

	switch {
	case errors.Is(err, conversation.ErrBusy):
		s.printError(s.printer.Sprintf(i18n.StillThinking))
	case errors.Is(err, conversation.ErrNotLoaded) && s.engine.Snapshot().ModelLoaded:
		s.printError(s.printer.Sprintf(i18n.ModelNotReady))
	case errors.Is(err, conversation.ErrNotLoaded):
		s.printError(s.printer.Sprintf(i18n.ModelNotSelected))
	case err != nil:
		if snap := s.engine.Snapshot(); snap.HasError {
			s.printError(snap.LastError)
		} else {
			s.printError(err.Error())
		}
	default:
		s.printLastReply()
	}
	return true
}

// command runs a slash command and reports whether to keep going.
func (s *chatSession) command(input string) bool {
	name := strings.ToLower(strings.Fields(input)[0])
	switch name {
	case "/quit", "/exit", "/q":
		return false
	case "/clear":
		s.engine.ClearChat()
		s.printLastReply()
	case "/save":
		snap := s.engine.Snapshot()
		id, err := s.transcripts.Save(s.engine.Transcript(), filepath.Base(snap.ModelPath))
		if err != nil {
			s.printError(err.Error())
			return true
		}
		fmt.Fprintln(s.out, MarkerOK(), s.printer.Sprintf(i18n.TranscriptSaved, s.transcripts.Path(id)))
	case "/help", "/?":
		s.printHelp()
	default:
		s.printError("unknown command " + name + " (try /help)")
	}
	return true
}

func (s *chatSession) printLastReply() {
	msgs := s.engine.Snapshot().Messages
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.IsUser || last.IsLoading {
		return
	}
	fmt.Fprintln(s.out, s.render(last.Content))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printError(msg string) {
	fmt.Fprintf(s.out, "%s %s\n", MarkerFail(), msg)
}

func (s *chatSession) printHelp() {
	rows := [][2]string{
		{"/clear", "start a new conversation"},
		{"/save", "save the conversation"},
		{"/help", "show this help"},
		{"/quit", "exit"},
	}
	for _, r := range rows {
		fmt.Fprintln(s.out, LabelStyle.Render(r[0])+ValueStyle.Render(r[1]))
	}
}
