// Package tokens estimates and bounds text size in model tokens.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// cl100k_base is close enough for budgeting across providers.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// Count returns the token count of text. When the codec is unavailable it
// falls back to four bytes per token.
func Count(text string) int {
	c, err := getCodec()
	if err != nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

// Truncate cuts text to at most max tokens and reports whether it cut.
// A non-positive max disables the limit.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || text == "" {
		return text, false
	}
	c, err := getCodec()
	if err != nil {
		return truncateBytes(text, max*4)
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return truncateBytes(text, max*4)
	}
	if len(ids) <= max {
		return text, false
	}
	out, err := c.Decode(ids[:max])
	if err != nil {
		return truncateBytes(text, max*4)
	}
	return out, true
}

func truncateBytes(text string, n int) (string, bool) {
	if len(text) <= n {
		return text, false
	}
	r := []rune(text[:n])
	// Drop a rune split by the byte cut.
	if len(r) > 0 && r[len(r)-1] == utf8.RuneError {
		r = r[:len(r)-1]
	}
	return string(r), true
}
