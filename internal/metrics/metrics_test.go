// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDownload(t *testing.T) {
	before := testutil.ToFloat64(downloadTotal.WithLabelValues("success"))
	ObserveDownload("success", 3*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(downloadTotal.WithLabelValues("success")))
}

func TestAddDownloadedBytes(t *testing.T) {
	before := testutil.ToFloat64(downloadBytes)
	AddDownloadedBytes(4096)
	assert.Equal(t, before+4096, testutil.ToFloat64(downloadBytes))
}

func TestServe_ExposesMetrics(t *testing.T) {
	ObserveModelLoad("ok")
	ObserveInference("ollama", "ok", 250*time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	assert.Contains(t, string(body), "konsulton_model_load_total")
	assert.Contains(t, string(body), "konsulton_inference_duration_seconds")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
