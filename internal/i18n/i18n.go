// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n holds every user-facing string konsulton shows, in
// Indonesian (the default) and English.
package i18n

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a translatable message.
type Key string

// Numbers are passed pre-formatted (see Int) so the printer does not apply
// locale digit grouping; "2048 MB" must stay "2048 MB" in Indonesian.
const (
	// Download pipeline
	InsufficientSpace Key = "download.insufficient_space" // required MB, available MB
	HTTPStatus        Key = "download.http_status"        // status code
	NoSpaceLeft       Key = "download.no_space"
	NetworkProblem    Key = "download.network"
	DownloadTimeout   Key = "download.timeout"
	DownloadFailed    Key = "download.failed"
	DownloadCanceled  Key = "download.canceled"
	OfflineBlocked    Key = "download.offline"

	// Conversation engine
	ModelNotFoundAtPath Key = "chat.model_not_found_at_path"
	ModelNotSelected    Key = "chat.model_not_selected"
	LoadError           Key = "chat.load_error" // cause
	BackendDown         Key = "chat.backend_down"
	ModelNotReady       Key = "chat.model_not_ready"
	SendError           Key = "chat.send_error" // cause
	EmptyResponse       Key = "chat.empty_response"
	Greeting            Key = "chat.greeting"
	ClearGreeting       Key = "chat.clear_greeting"
	StillThinking       Key = "chat.busy"

	// Front ends
	ModelsTitle     Key = "ui.models_title"
	ChatTitle       Key = "ui.chat_title"
	Installed       Key = "ui.installed"
	NotInstalled    Key = "ui.not_installed"
	FreeSpace       Key = "ui.free_space" // free MB
	Downloading     Key = "ui.downloading"
	DownloadDone    Key = "ui.download_done"
	Deleted         Key = "ui.deleted" // file name
	NothingToDelete Key = "ui.nothing_to_delete"
	LoadingModel    Key = "ui.loading_model"
	InputHint       Key = "ui.input_hint"
	TranscriptSaved Key = "ui.transcript_saved" // path
	NoStorageAccess Key = "ui.no_storage_access"
)

var translations = map[language.Tag]map[Key]string{
	language.Indonesian: {
		InsufficientSpace: "Tidak cukup ruang penyimpanan. Diperlukan %s MB, tersedia %s MB.",
		HTTPStatus:        "Server returned HTTP %s",
		NoSpaceLeft:       "Tidak cukup ruang penyimpanan. Hapus beberapa file dan coba lagi.",
		NetworkProblem:    "Koneksi internet bermasalah. Periksa koneksi dan coba lagi.",
		DownloadTimeout:   "Download timeout. Periksa koneksi internet dan coba lagi.",
		DownloadFailed:    "Download gagal. Coba lagi nanti.",
		DownloadCanceled:  "Download dibatalkan.",
		OfflineBlocked:    "Mode offline aktif. Download diblokir.",

		ModelNotFoundAtPath: "Model file tidak ditemukan di path yang dipilih.",
		ModelNotSelected:    "Model belum dipilih atau tidak ditemukan.",
		LoadError:           "Error loading model: %s",
		BackendDown:         "Server inferensi tidak berjalan. Jalankan ollama lalu muat ulang model.",
		ModelNotReady:       "Model gagal dimuat. Pilih atau muat ulang model.",
		SendError:           "Error: %s",
		EmptyResponse:       "Maaf bro, gagal generate response.",
		Greeting:            "Halo! Aku adalah Presiden Republik Indonesia. Bagaimana saya bisa membantu Anda hari ini?",
		ClearGreeting:       "Halo saudara!",
		StillThinking:       "Masih menunggu jawaban sebelumnya.",

		ModelsTitle:     "Pilih Model",
		ChatTitle:       "Konsultasi",
		Installed:       "terpasang",
		NotInstalled:    "belum diunduh",
		FreeSpace:       "Ruang kosong: %s MB",
		Downloading:     "Mengunduh",
		DownloadDone:    "Download selesai.",
		Deleted:         "%s dihapus.",
		NothingToDelete: "Tidak ada file untuk dihapus.",
		LoadingModel:    "Memuat model...",
		InputHint:       "Ketik pesan...",
		TranscriptSaved: "Percakapan disimpan ke %s",
		NoStorageAccess: "Tidak ada akses tulis ke folder model.",
	},
	language.English: {
		InsufficientSpace: "Not enough storage space. %s MB required, %s MB available.",
		HTTPStatus:        "Server returned HTTP %s",
		NoSpaceLeft:       "Not enough storage space. Delete some files and try again.",
		NetworkProblem:    "Network connection problem. Check your connection and try again.",
		DownloadTimeout:   "Download timed out. Check your internet connection and try again.",
		DownloadFailed:    "Download failed. Try again later.",
		DownloadCanceled:  "Download canceled.",
		OfflineBlocked:    "Offline mode is on. Downloads are blocked.",

		ModelNotFoundAtPath: "Model file not found at the selected path.",
		ModelNotSelected:    "No model selected or the model file is missing.",
		LoadError:           "Error loading model: %s",
		BackendDown:         "The inference server is not running. Start ollama and load the model again.",
		ModelNotReady:       "The model failed to load. Pick or reload a model.",
		SendError:           "Error: %s",
		EmptyResponse:       "Sorry, the model did not produce a response.",
		Greeting:            "Hello! I am the President of the Republic of Indonesia. How can I help you today?",
		ClearGreeting:       "Hello, fellow citizen!",
		StillThinking:       "Still waiting for the previous answer.",

		ModelsTitle:     "Choose a Model",
		ChatTitle:       "Consultation",
		Installed:       "installed",
		NotInstalled:    "not downloaded",
		FreeSpace:       "Free space: %s MB",
		Downloading:     "Downloading",
		DownloadDone:    "Download complete.",
		Deleted:         "%s deleted.",
		NothingToDelete: "Nothing to delete.",
		LoadingModel:    "Loading model...",
		InputHint:       "Type a message...",
		TranscriptSaved: "Conversation saved to %s",
		NoStorageAccess: "No write access to the models folder.",
	},
}

var (
	supported = []language.Tag{language.Indonesian, language.English}
	matcher   = language.NewMatcher(supported)
	cat       = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Indonesian))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			// Only fails on malformed messages; the table above is static.
			if err := b.SetString(tag, string(key), msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}

// Printer formats messages for one locale. The zero value is not usable;
// use NewPrinter or Default.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a Printer for the closest supported match of locale.
// Unknown or malformed locales fall back to Indonesian.
func NewPrinter(locale string) *Printer {
	tag := language.Indonesian
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(parsed)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Default returns the Indonesian printer.
func Default() *Printer {
	return NewPrinter("id")
}

// Sprintf formats the message for key.
func (p *Printer) Sprintf(key Key, args ...interface{}) string {
	return p.p.Sprintf(string(key), args...)
}

// Tag returns the resolved locale.
func (p *Printer) Tag() language.Tag {
	return p.tag
}

// Int formats n without grouping separators.
func Int(n int) string {
	return strconv.Itoa(n)
}
