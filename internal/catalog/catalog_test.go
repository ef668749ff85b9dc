// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogue_IsValid(t *testing.T) {
	require.NoError(t, ValidateAll(All()))
}

func TestCatalogue_Contents(t *testing.T) {
	all := All()
	require.Len(t, all, 4)

	assert.Equal(t, "qwen2.5-0.5B-Instruct", all[0].ID)
	assert.Equal(t, 547, all[0].ExpectedSizeMB)
	assert.Equal(t,
		"https://huggingface.co/litert-community/Qwen2.5-0.5B-Instruct/resolve/main/Qwen2.5-0.5B-Instruct_multi-prefill-seq_q8_ekv1280.task?download=true",
		all[0].DownloadURL)
	assert.Equal(t, "hammer2p1_05b_.task", all[1].FileName)
	assert.Equal(t, 502, all[1].ExpectedSizeMB)
	assert.Equal(t, 2048, all[2].ExpectedSizeMB)
	assert.Equal(t, "smalvlm-256m-instruct_q8_ekv2048_single_image.tflite", all[3].FileName)
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0].DisplayName = "mutated"
	assert.NotEqual(t, "mutated", All()[0].DisplayName)
}

func TestLookups(t *testing.T) {
	d, ok := ByFileName("deepseek_q8_ekv1280.task")
	require.True(t, ok)
	assert.Equal(t, "DeepSeek-R1-Distill-Qwen-1.5B", d.ID)

	_, ok = ByFileName("DEEPSEEK_Q8_EKV1280.TASK")
	assert.False(t, ok, "file names are case-sensitive")

	d, ok = ByID("HAMMER2.1-0.5B")
	require.True(t, ok)
	assert.Equal(t, "Hammer2.1-0.5b", d.DisplayName)

	d, ok = Find("hammer2p1_05b_.task")
	require.True(t, ok)
	assert.Equal(t, "hammer2.1-0.5b", d.ID)

	_, ok = Find("gpt-5")
	assert.False(t, ok)
}

func TestValidate_Rejects(t *testing.T) {
	good := Descriptor{
		ID: "m", DisplayName: "M", FileName: "m.task",
		DownloadURL: "https://example.com/m.task", ExpectedSizeMB: 500,
	}
	require.NoError(t, Validate(good))

	tests := map[string]func(d *Descriptor){
		"empty id":        func(d *Descriptor) { d.ID = "" },
		"path in name":    func(d *Descriptor) { d.FileName = "../m.task" },
		"backslash name":  func(d *Descriptor) { d.FileName = `dir\m.task` },
		"ftp url":         func(d *Descriptor) { d.DownloadURL = "ftp://example.com/m.task" },
		"zero size":       func(d *Descriptor) { d.ExpectedSizeMB = 0 },
		"missing display": func(d *Descriptor) { d.DisplayName = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			d := good
			mutate(&d)
			assert.ErrorIs(t, Validate(d), ErrInvalid)
		})
	}
}

func TestValidateAll_Duplicates(t *testing.T) {
	a := Descriptor{ID: "a", DisplayName: "A", FileName: "a.task", DownloadURL: "https://x/a", ExpectedSizeMB: 1}
	b := a
	b.ID = "b"

	err := ValidateAll([]Descriptor{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
}
