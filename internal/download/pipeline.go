// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jeranaias/konsulton-tui/internal/catalog"
	"github.com/jeranaias/konsulton-tui/internal/i18n"
	"github.com/jeranaias/konsulton-tui/internal/metrics"
	"github.com/jeranaias/konsulton-tui/internal/offline"
	"github.com/jeranaias/konsulton-tui/internal/store"
	"github.com/jeranaias/konsulton-tui/internal/util"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultChunkSize is the read size between progress events.
	DefaultChunkSize = 4096

	// partialSuffix marks a file that is still being written.
	partialSuffix = ".partial"
)

// Config configures a Pipeline.
type Config struct {
	// Dir is the models directory files are written to.
	Dir string

	// ResponseTimeout bounds connecting and receiving response headers.
	// The body transfer itself has no deadline.
	ResponseTimeout time.Duration

	UserAgent string
	ChunkSize int

	// Buffer is the event channel capacity.
	Buffer int

	Printer *i18n.Printer

	// FreeSpace reports available bytes for a directory. Defaults to
	// store.FreeSpace.
	FreeSpace func(dir string) (uint64, error)

	// HTTPClient overrides the client built from ResponseTimeout.
	HTTPClient *http.Client
}

// DefaultConfig returns a Config for dir with the default chunk size.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		ResponseTimeout: 30 * time.Second,
		UserAgent:       "konsulton/1.0",
		ChunkSize:       DefaultChunkSize,
		Buffer:          64,
	}
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline downloads catalogue models into one directory.
type Pipeline struct {
	cfg    Config
	client *http.Client
	msg    *i18n.Printer
}

// NewPipeline builds a Pipeline, filling unset Config fields with defaults.
func NewPipeline(cfg Config) *Pipeline {
	def := DefaultConfig(cfg.Dir)
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.FreeSpace == nil {
		cfg.FreeSpace = store.FreeSpace
	}
	if cfg.Printer == nil {
		cfg.Printer = i18n.Default()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.ResponseTimeout)
	}
	return &Pipeline{cfg: cfg, client: client, msg: cfg.Printer}
}

func newHTTPClient(responseTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if responseTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: responseTimeout, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = responseTimeout
		transport.ResponseHeaderTimeout = responseTimeout
	}
	// No Client.Timeout: it would cap the whole body transfer.
	return &http.Client{Transport: transport}
}

// Dir returns the directory the pipeline writes to.
func (p *Pipeline) Dir() string {
	return p.cfg.Dir
}

// Download starts downloading d and returns its event sequence. The first
// event is always Starting; the last is exactly one Success or Error, after
// which the channel is closed. Every call starts again from byte zero.
//
// The producer blocks while the channel is full, so callers must keep
// receiving until it is closed. Cancelling ctx stops the transfer at the
// next read and ends the sequence with a KindCanceled Error.
func (p *Pipeline) Download(ctx context.Context, d catalog.Descriptor) <-chan State {
	out := make(chan State, p.cfg.Buffer)
	out <- Starting()
	go p.run(ctx, d, out)
	return out
}

// run owns out and closes it.
func (p *Pipeline) run(ctx context.Context, d catalog.Descriptor, out chan<- State) {
	defer close(out)

	start := time.Now()
	log.Printf("DOWNLOAD_START | model=%s url=%s", d.ID, d.DownloadURL)

	progress := func(s State) {
		select {
		case out <- s:
		case <-ctx.Done():
		}
	}

	final := p.fetch(ctx, d, progress)
	out <- final

	result := "success"
	if final.Phase == PhaseError {
		result = final.Kind.String()
		log.Printf("DOWNLOAD_FAILED | model=%s kind=%s msg=%q", d.ID, final.Kind, final.Message)
	} else {
		log.Printf("DOWNLOAD_DONE | model=%s elapsed=%s", d.ID, time.Since(start).Round(time.Millisecond))
	}
	metrics.ObserveDownload(result, time.Since(start))
}

// fetch performs the download and returns the terminal state.
func (p *Pipeline) fetch(ctx context.Context, d catalog.Descriptor, emit func(State)) State {
	dir := p.cfg.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return p.failure(fmt.Errorf("create models directory: %w", err))
	}

	required := util.MBToBytes(d.ExpectedSizeMB)
	free, err := p.cfg.FreeSpace(dir)
	if err != nil {
		return p.failure(fmt.Errorf("check free space: %w", err))
	}
	if required > 0 && free < uint64(required) {
		return Failure(KindInsufficientSpace, p.msg.Sprintf(i18n.InsufficientSpace,
			i18n.Int(d.ExpectedSizeMB), i18n.Int(util.BytesToMB(free))))
	}

	if err := offline.ValidateURL(d.DownloadURL); err != nil {
		if errors.Is(err, offline.ErrNonLocalhost) {
			return Failure(KindNetwork, p.msg.Sprintf(i18n.OfflineBlocked))
		}
		return p.failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.DownloadURL, nil)
	if err != nil {
		return p.failure(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	if token := os.Getenv("HF_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return p.failure(&Error{Kind: KindHTTPStatus, StatusCode: resp.StatusCode})
	}

	finalPath := filepath.Join(dir, d.FileName)
	partialPath := finalPath + partialSuffix

	if err := p.stream(ctx, resp, d, partialPath, emit); err != nil {
		removePartial(partialPath)
		return p.failure(err)
	}
	if err := os.Rename(partialPath, finalPath); err != nil {
		removePartial(partialPath)
		return p.failure(fmt.Errorf("finalize %s: %w", d.FileName, err))
	}
	return Success()
}

// stream copies the body to path in fixed-size reads, emitting a
// Downloading event after each one.
func (p *Pipeline) stream(ctx context.Context, resp *http.Response, d catalog.Descriptor, path string, emit func(State)) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	contentLength := resp.ContentLength
	totalMB := d.ExpectedSizeMB
	if contentLength > 0 {
		totalMB = util.BytesToMB(contentLength)
	}

	buf := make([]byte, p.cfg.ChunkSize)
	var written int64

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				f.Close()
				return writeError("write", path, err)
			}
			written += int64(n)
			metrics.AddDownloadedBytes(n)

			percent := 0
			if contentLength > 0 {
				percent = int(written * 100 / contentLength)
			}
			emit(Progress(percent, util.BytesToMB(written), totalMB))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("read body: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return writeError("sync", path, err)
	}
	if err := f.Close(); err != nil {
		return writeError("close", path, err)
	}
	return nil
}

// writeError wraps a failed file operation, tagging a full disk as
// KindInsufficientSpace.
func writeError(op, path string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, path, err)
	if errors.Is(err, syscall.ENOSPC) {
		return &Error{Kind: KindInsufficientSpace, Err: wrapped}
	}
	return wrapped
}

// removePartial deletes an unfinished file. Failure only gets logged; the
// download has already failed for a better reason.
func removePartial(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Printf("DOWNLOAD_CLEANUP_FAILED | path=%s err=%v", path, err)
		return
	}
	log.Printf("DOWNLOAD_CLEANUP | path=%s", path)
}

// failure turns err into a terminal Error event.
func (p *Pipeline) failure(err error) State {
	kind := Classify(err)
	return Failure(kind, p.Message(kind, err))
}

// Message returns the localized text for a failure of kind.
func (p *Pipeline) Message(kind Kind, err error) string {
	switch kind {
	case KindInsufficientSpace:
		return p.msg.Sprintf(i18n.NoSpaceLeft)
	case KindNetwork:
		return p.msg.Sprintf(i18n.NetworkProblem)
	case KindTimeout:
		return p.msg.Sprintf(i18n.DownloadTimeout)
	case KindCanceled:
		return p.msg.Sprintf(i18n.DownloadCanceled)
	case KindHTTPStatus:
		var de *Error
		if errors.As(err, &de) {
			return p.msg.Sprintf(i18n.HTTPStatus, i18n.Int(de.StatusCode))
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return p.msg.Sprintf(i18n.DownloadFailed)
}

// Collect drains a download's events into a slice. Handy for tests and
// non-interactive callers.
func Collect(events <-chan State) []State {
	var out []State
	for s := range events {
		out = append(out, s)
	}
	return out
}
