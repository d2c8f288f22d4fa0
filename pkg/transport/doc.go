// Package transport streams model responses as domain.StreamEvent values.
//
// Three adapters implement ports.Transport: a plain SSE client for
// OpenAI-compatible and conversation-threaded backends, and SDK-backed
// clients for OpenAI and Anthropic. All of them separate thinking from answer
// deltas, surface citations, and refresh credentials once on 401, 403 or 429.
package transport
