// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies ANSI syntax highlighting to a code snippet.
// Returns the input unchanged when highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// highlightFencedBlocks highlights ```lang fenced blocks in markdown
// text, leaving prose untouched. Used when the full markdown renderer
// is disabled.
func highlightFencedBlocks(text string) string {
	var out strings.Builder
	lines := strings.Split(text, "\n")

	var inBlock bool
	var language string
	var block []string

	flush := func() {
		if len(block) > 0 {
			out.WriteString(highlightCode(strings.Join(block, "\n"), language))
			out.WriteString("\n")
		}
		block = block[:0]
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				flush()
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
			}
			inBlock = !inBlock
			continue
		}
		if inBlock {
			block = append(block, line)
			continue
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	// Unterminated fence: emit what we collected.
	if inBlock {
		flush()
	}

	return strings.TrimRight(out.String(), "\n")
}
