package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractJSON returns the JSON document embedded in a model reply.
// A reply that is already valid JSON is returned trimmed. Otherwise fenced
// code blocks win over bare objects; the input is returned as is when nothing
// that looks like JSON is found.
func extractJSON(s string) string {
	if trimmed := strings.TrimSpace(s); gjson.Valid(trimmed) {
		return trimmed
	}

	for _, fence := range []string{"```json", "```"} {
		idx := strings.Index(s, fence)
		if idx == -1 {
			continue
		}
		body := strings.TrimLeft(s[idx+len(fence):], "\r\n")
		if end := strings.Index(body, "```"); end != -1 {
			return strings.TrimRight(body[:end], "\r\n")
		}
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	depth := 0
	inString, escaped := false, false
	for j := start; j < len(s); j++ {
		c := s[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : j+1]
			}
		}
	}
	return s
}
