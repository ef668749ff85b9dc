// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package download

import "fmt"

// =============================================================================
// STATE
// =============================================================================

// Phase tags a State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseDownloading
	PhaseSuccess
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseDownloading:
		return "downloading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is one event of a download. Only the fields belonging to Phase
// are meaningful: the three counters for PhaseDownloading, Message and
// Kind for PhaseError.
type State struct {
	Phase Phase

	// Percent is 0-100, or 0 when the server sent no content length.
	Percent      int
	DownloadedMB int
	TotalMB      int

	Message string
	Kind    Kind
}

// Idle is the state before anything has been requested.
func Idle() State { return State{Phase: PhaseIdle} }

// Starting is always the first event of a download.
func Starting() State { return State{Phase: PhaseStarting} }

// Progress is emitted after every chunk written.
func Progress(percent, downloadedMB, totalMB int) State {
	return State{Phase: PhaseDownloading, Percent: percent, DownloadedMB: downloadedMB, TotalMB: totalMB}
}

// Success ends a download that produced a complete file.
func Success() State { return State{Phase: PhaseSuccess} }

// Failure ends a download that did not.
func Failure(kind Kind, message string) State {
	return State{Phase: PhaseError, Kind: kind, Message: message}
}

// IsTerminal reports whether s ends the event sequence.
func (s State) IsTerminal() bool {
	return s.Phase == PhaseSuccess || s.Phase == PhaseError
}

// String is meant for logs.
func (s State) String() string {
	switch s.Phase {
	case PhaseDownloading:
		return fmt.Sprintf("downloading %d%% (%d/%d MB)", s.Percent, s.DownloadedMB, s.TotalMB)
	case PhaseError:
		return fmt.Sprintf("error[%s]: %s", s.Kind, s.Message)
	default:
		return s.Phase.String()
	}
}
