package transport

import (
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/tidwall/gjson"
)

// Field paths tried in order on every payload. Different backends put the
// same thing in different places; the first hit wins.
var (
	thinkingPaths = []string{
		"choices.0.delta.reasoning_content",
		"choices.0.delta.reasoning",
		"delta.thinking",
		"thinking",
		"reasoning",
	}
	answerPaths = []string{
		"choices.0.delta.content",
		"choices.0.message.content",
		"delta.text",
		"answer",
		"content",
		"text",
	}
	// cumulativePaths carry the whole answer so far rather than a delta.
	cumulativePaths = []string{
		"message.content.parts.0",
	}
	phaseTagPaths    = []string{"phase", "type"}
	conversationPath = "conversation_id"
	messageIDPaths   = []string{"message.id", "message_id"}
	errorPaths       = []string{"error.message", "error"}
)

// chunk is what one payload contributes to the stream.
type chunk struct {
	thinking       string
	answer         string
	cumulative     bool
	citations      []domain.Citation
	conversationID string
	messageID      string
	errMsg         string
}

func firstString(res gjson.Result, paths []string) (string, bool) {
	for _, p := range paths {
		if r := res.Get(p); r.Type == gjson.String {
			return r.String(), true
		}
	}
	return "", false
}

func isThinkingTag(tag string) bool {
	switch tag {
	case "thinking", "reasoning", "thinking_delta", "reasoning_delta":
		return true
	}
	return false
}

// extractChunk reads one JSON payload. Invalid JSON yields an empty chunk.
func extractChunk(payload string) chunk {
	var c chunk
	if !gjson.Valid(payload) {
		return c
	}
	root := gjson.Parse(payload)

	if msg, ok := firstString(root, errorPaths); ok && msg != "" {
		c.errMsg = msg
		return c
	}

	tag, _ := firstString(root, phaseTagPaths)
	if isThinkingTag(tag) {
		c.thinking, _ = firstString(root, []string{"text", "content", "delta", "thinking", "reasoning"})
	} else {
		c.thinking, _ = firstString(root, thinkingPaths)
		if s, ok := firstString(root, answerPaths); ok {
			c.answer = s
		} else if s, ok := firstString(root, cumulativePaths); ok {
			c.answer, c.cumulative = s, true
		}
	}

	c.citations = citations(root)
	c.conversationID = root.Get(conversationPath).String()
	c.messageID, _ = firstString(root, messageIDPaths)
	return c
}

func citations(root gjson.Result) []domain.Citation {
	var out []domain.Citation
	add := func(url, title string) {
		if url != "" {
			out = append(out, domain.Citation{URL: url, Title: title})
		}
	}

	root.Get("citations").ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			add(v.String(), "")
		} else {
			add(v.Get("url").String(), v.Get("title").String())
		}
		return true
	})
	root.Get("choices.0.delta.annotations").ForEach(func(_, v gjson.Result) bool {
		add(v.Get("url_citation.url").String(), v.Get("url_citation.title").String())
		return true
	})
	if c := root.Get("delta.citation"); c.Exists() {
		add(c.Get("url").String(), c.Get("title").String())
	}
	return out
}

// dataPayload returns the payload of an SSE "data:" line.
func dataPayload(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
