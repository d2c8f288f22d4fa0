/*
Package tendril is an agentic tool-use loop for working on a project
directory with a language model.

A run alternates between the model and the tool executor: the model's
answer is parsed into tool calls or file actions, the tools run against a
sandboxed workspace, and their summarized results go back to the model
until it completes the task, asks a question, or the iteration ceiling is
reached.

# Modes

In agent mode every tool runs as soon as the model asks for it. In
approval mode each mutating tool waits for an Approver, which sees a diff
preview of the change.

# Usage

	model, err := transport.New(transport.Config{Type: transport.TypeOpenAI, Model: "gpt-4o-mini"}, nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	r, err := tendril.New(".", model)
	if err != nil {
		log.Fatal(err)
	}
	if err := r.Run(ctx, "add a README"); err != nil {
		log.Fatal(err)
	}

# Packages

  - pkg/runner: the orchestrator, observers, approvers and terminal handlers.
  - pkg/tools: the tool catalog and executor.
  - pkg/parser: model response recognition.
  - pkg/diff: Myers diff and unified hunks.
  - pkg/fileops: the workspace and file actions.
  - pkg/transport: streaming model clients with auth refresh.
  - pkg/session and pkg/adapters: session persistence, HTTP and MCP servers.
*/
package tendril
