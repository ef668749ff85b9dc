// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog is the compiled-in list of models konsulton knows how to
// download.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// DESCRIPTOR
// =============================================================================

// Descriptor identifies one downloadable model artifact. Descriptors are
// defined at process start and never mutated.
type Descriptor struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`

	// FileName is the on-disk key inside the models directory.
	FileName string `json:"file_name" validate:"required,modelfile"`

	DownloadURL    string `json:"download_url" validate:"required,url,httpurl"`
	ExpectedSizeMB int    `json:"expected_size_mb" validate:"gt=0"`
}

// String returns the display name.
func (d Descriptor) String() string {
	return d.DisplayName
}

const hfBase = "https://huggingface.co/litert-community/"

func litert(id, name, file string, sizeMB int) Descriptor {
	return Descriptor{
		ID:             id,
		DisplayName:    name,
		FileName:       file,
		DownloadURL:    hfBase + name + "/resolve/main/" + file + "?download=true",
		ExpectedSizeMB: sizeMB,
	}
}

var models = []Descriptor{
	litert("qwen2.5-0.5B-Instruct", "Qwen2.5-0.5B-Instruct",
		"Qwen2.5-0.5B-Instruct_multi-prefill-seq_q8_ekv1280.task", 547),
	litert("hammer2.1-0.5b", "Hammer2.1-0.5b",
		"hammer2p1_05b_.task", 502),
	litert("DeepSeek-R1-Distill-Qwen-1.5B", "DeepSeek-R1-Distill-Qwen-1.5B",
		"deepseek_q8_ekv1280.task", 2048),
	litert("SmolVLM-256M-Instruct", "SmolVLM-256M-Instruct",
		"smalvlm-256m-instruct_q8_ekv2048_single_image.tflite", 2048),
}

// =============================================================================
// LOOKUP
// =============================================================================

// All returns the catalogue in display order. The slice is a copy.
func All() []Descriptor {
	out := make([]Descriptor, len(models))
	copy(out, models)
	return out
}

// ByFileName finds the descriptor whose FileName matches exactly.
func ByFileName(name string) (Descriptor, bool) {
	for _, d := range models {
		if d.FileName == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ByID finds a descriptor by ID, ignoring case.
func ByID(id string) (Descriptor, bool) {
	for _, d := range models {
		if strings.EqualFold(d.ID, id) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Find accepts either an ID or a file name, which is what the CLI takes.
func Find(ref string) (Descriptor, bool) {
	if d, ok := ByID(ref); ok {
		return d, true
	}
	return ByFileName(ref)
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	// ErrInvalid is returned by Validate for a descriptor with a bad field.
	ErrInvalid = errors.New("invalid catalogue entry")

	// ErrDuplicate is returned by ValidateAll when two descriptors share an
	// ID or file name.
	ErrDuplicate = errors.New("duplicate catalogue entry")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("modelfile", validateFileName)
	_ = v.RegisterValidation("httpurl", validateHTTPURL)
	return v
}

// validateFileName rejects anything that could escape the models directory.
func validateFileName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func validateHTTPURL(fl validator.FieldLevel) bool {
	u := strings.ToLower(fl.Field().String())
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}

// Validate checks one descriptor's fields.
func Validate(d Descriptor) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalid, d.ID, err)
	}
	return nil
}

// ValidateAll validates every descriptor and enforces unique IDs and file names.
func ValidateAll(ds []Descriptor) error {
	ids := make(map[string]bool, len(ds))
	files := make(map[string]bool, len(ds))
	for _, d := range ds {
		if err := Validate(d); err != nil {
			return err
		}
		if ids[strings.ToLower(d.ID)] {
			return fmt.Errorf("%w: id %q", ErrDuplicate, d.ID)
		}
		if files[d.FileName] {
			return fmt.Errorf("%w: file name %q", ErrDuplicate, d.FileName)
		}
		ids[strings.ToLower(d.ID)] = true
		files[d.FileName] = true
	}
	return nil
}
