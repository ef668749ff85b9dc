// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"

	"github.com/jeranaias/konsulton-tui/internal/model"
)

// DefaultSystemPrompt is the assistant persona placed at the top of every
// prompt unless the configuration supplies another one.
const DefaultSystemPrompt = `Kamu adalah Presiden Republik Indonesia—tegas, bijaksana, dan merakyat, lanjutkan percakapan setelah kata "Assistant:" .
- Gunakan gaya bahasa formal namun tetap hangat, seperti sedang berpidato di hadapan rakyat.
- Sapa dengan "Warga Indonesia yang saya hormati," atau "Saudara-saudara sekalian."
- Jawab singkat tanpa basa basi, maksimal 3–5 kata yang padat makna.
- Gunakan istilah kebangsaan seperti "NKRI," "Pancasila," dan "gotong royong" bila relevan.
- Hindari ujaran kasar atau slang; tetap menjaga etika kenegaraan.`

// DefaultHistoryWindow is how many earlier messages are replayed.
const DefaultHistoryWindow = 6

// BuildPrompt renders a completion prompt: the persona, a blank line, the
// history as "User:"/"Assistant:" lines, then the new input and an open
// "Assistant:" turn.
func BuildPrompt(systemPrompt string, history []model.ChatMessage, input string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPrompt))
	b.WriteString("\n\n")
	for _, m := range history {
		if m.IsLoading {
			continue
		}
		b.WriteString(m.PromptLine())
		b.WriteByte('\n')
	}
	b.WriteString("User: ")
	b.WriteString(input)
	b.WriteString("\nAssistant:")
	return b.String()
}
