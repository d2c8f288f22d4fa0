package parser

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fenceRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\r?\n(.*?)```")

// extractJSON finds the JSON payload of a response: a ```json fence first,
// then an unlabeled fence holding JSON, then the bare text when bracketed.
func extractJSON(text string) (string, bool) {
	var unlabeled string
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		label, body := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		if label == "json" {
			return body, true
		}
		if label == "" && unlabeled == "" && looksLikeJSON(body) {
			unlabeled = body
		}
	}
	if unlabeled != "" {
		return unlabeled, true
	}

	trimmed := strings.TrimSpace(text)
	if looksLikeJSON(trimmed) {
		return trimmed, true
	}
	return "", false
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

// answerPaths are tried in order on every SSE payload.
var answerPaths = []string{
	"choices.0.delta.content",
	"choices.0.message.content",
	"delta.text",
	"message.content.parts.0",
	"answer",
	"content",
	"text",
}

// StreamText reassembles the answer text of a raw SSE envelope. Reasoning
// deltas and the [DONE] sentinel are ignored.
func StreamText(envelope []byte) string {
	var sb strings.Builder
	for _, line := range strings.Split(string(envelope), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" || !gjson.Valid(payload) {
			continue
		}
		for _, p := range answerPaths {
			if r := gjson.Get(payload, p); r.Type == gjson.String {
				sb.WriteString(r.String())
				break
			}
		}
	}
	return sb.String()
}
