// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"testing"
)

// =============================================================================
// MODE MANAGEMENT TESTS
// =============================================================================

func TestSetOfflineMode(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	if !IsOfflineMode() {
		t.Error("IsOfflineMode should return true after SetOfflineMode(true)")
	}

	SetOfflineMode(false)
	if IsOfflineMode() {
		t.Error("IsOfflineMode should return false after SetOfflineMode(false)")
	}
}

func TestIsOfflineMode_ThreadSafe(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				SetOfflineMode(j%2 == 0)
				_ = IsOfflineMode()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

// =============================================================================
// LOCALHOST DETECTION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"localhost:11434", true},
		{"127.0.0.1", true},
		{"127.0.0.53", true},
		{"::1", true},
		{"[::1]:8080", true},
		{"huggingface.co", false},
		{"192.168.1.10", false},
		{"localhost.evil.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLocalhost(tt.host); got != tt.want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestValidateURL_SchemeAlwaysChecked(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	bad := []string{
		"file:///etc/passwd",
		"ftp://ftp.example.com/model.task",
		"javascript:alert(1)",
	}
	for _, mode := range []bool{false, true} {
		SetOfflineMode(mode)
		for _, u := range bad {
			if err := ValidateURL(u); !errors.Is(err, ErrInvalidURLScheme) {
				t.Errorf("ValidateURL(%q) offline=%v = %v, want ErrInvalidURLScheme", u, mode, err)
			}
		}
	}
}

func TestValidateURL_OfflineBlocksRemote(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	remote := "https://huggingface.co/litert-community/Hammer2.1-0.5b/resolve/main/hammer2p1_05b_.task?download=true"
	local := "http://127.0.0.1:8000/hammer2p1_05b_.task"

	SetOfflineMode(false)
	if err := ValidateURL(remote); err != nil {
		t.Errorf("online: ValidateURL(remote) = %v, want nil", err)
	}

	SetOfflineMode(true)
	if err := ValidateURL(remote); !errors.Is(err, ErrNonLocalhost) {
		t.Errorf("offline: ValidateURL(remote) = %v, want ErrNonLocalhost", err)
	}
	if err := ValidateURL(local); err != nil {
		t.Errorf("offline: ValidateURL(local) = %v, want nil", err)
	}
}

func TestValidateURL_MissingHost(t *testing.T) {
	if err := ValidateURL("http://"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("ValidateURL(http://) = %v, want ErrInvalidURL", err)
	}
}

func TestStatusBadge(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	if StatusBadge() != "[OFFLINE]" {
		t.Errorf("StatusBadge() = %q", StatusBadge())
	}
	SetOfflineMode(false)
	if StatusBadge() != "" {
		t.Errorf("StatusBadge() = %q, want empty", StatusBadge())
	}
}
