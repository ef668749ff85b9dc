// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the konsulton command line.
//
// # Commands
//
//	konsulton [tui]              full-screen model list and chat
//	konsulton chat [--model P]   line-mode chat with history
//	konsulton models list        catalogue with install state
//	konsulton pull <id|file>     download a catalogue model
//	konsulton rm <id|file>       delete a downloaded model
//	konsulton config show|path|init
//	konsulton transcripts [show|rm|clear]
//
// Global flags --config, --offline, --locale, --metrics-addr and
// --verbose apply to every command.
//
// # Usage
//
//	os.Exit(cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
//
// Execute prints a failed command's error once and returns an exit code
// from GetExitCode.
package cli
