/*
Package domain contains the core types of the tendril orchestration loop.

It defines the conversation transcript, tool calls and their results, the
normalized file actions produced by the response parser, plan steps and the
run state of the orchestrator. The package is kept pure and free of I/O so
that parsers, tools, transports and stores can share it without depending on
each other.

# Key Entities

  - Message: one entry of the append-only conversation transcript.
  - ToolCall / ToolResult: a model-issued tool directive and its uniform outcome.
  - ToolSpec: the static catalog entry for a tool, including its approval class.
  - FileAction: a normalized file mutation decoded from heterogeneous JSON.
  - ConversationState: the immutable remote thread identifiers.
  - Session: the persisted snapshot of a conversation.
*/
package domain
