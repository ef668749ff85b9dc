// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/jeranaias/konsulton-tui/internal/offline"
)

// =============================================================================
// FAILURE KINDS
// =============================================================================

// Kind classifies why a download failed.
type Kind int

const (
	KindGeneric Kind = iota
	KindInsufficientSpace
	KindNetwork
	KindTimeout
	KindHTTPStatus
	KindCanceled
)

// String returns the kind's metrics label.
func (k Kind) String() string {
	switch k {
	case KindInsufficientSpace:
		return "insufficient_space"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindCanceled:
		return "canceled"
	default:
		return "generic"
	}
}

// Error carries a Kind decided where the failure happened.
type Error struct {
	Kind       Kind
	StatusCode int // set for KindHTTPStatus
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify maps an error to a Kind. Typed errors are checked first; only
// when none applies does the description get searched for "space",
// "network" and "timeout", in that order.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.ENOSPC):
		return KindInsufficientSpace
	case errors.Is(err, offline.ErrNonLocalhost):
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return KindNetwork
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return KindNetwork
	case errors.Is(err, io.ErrUnexpectedEOF):
		return KindNetwork
	}

	if kind, ok := classifyDescription(err.Error()); ok {
		return kind
	}
	return KindGeneric
}

// classifyDescription is the keyword rule. Order matters: a description
// mentioning both space and network is a space problem.
func classifyDescription(desc string) (Kind, bool) {
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "space"):
		return KindInsufficientSpace, true
	case strings.Contains(lower, "network"):
		return KindNetwork, true
	case strings.Contains(lower, "timeout"):
		return KindTimeout, true
	}
	return KindGeneric, false
}
