/*
Package runner implements the orchestration loop of a tendril agent.

A Runner owns one conversation. Each turn it streams the transcript to a
ports.Transport, interprets the reply with the parser and then, depending on
what the model asked for, executes tools, drives a multi-step plan, pauses
for a follow-up answer or settles. The run is a small state machine:

	Idle -> Running -> {AwaitingApproval | AwaitingUserAnswer} -> Running -> {Completed | Failed | Cancelled}

In ModeApproval every tool whose spec requires approval passes through the
Approver first; in ModeAgent the Approver is never consulted. Tool errors
never stop the loop: they are reported back to the model as tool messages.
A workflow stops after DefaultMaxIterations turns unless configured otherwise.

# Front ends

  - TextHandler: interactive terminal, implements Observer and Approver.
  - JSONHandler: JSON lines on stdin/stdout for headless hosts.
  - EventObserver and QueueApprover: building blocks for servers.

# Usage

	r, err := runner.New(tr, ws,
		runner.WithMode(runner.ModeApproval),
		runner.WithObserver(h),
		runner.WithApprover(h),
	)
	if err != nil {
		return err
	}
	return r.Run(ctx, "rename util.js to helpers.js")
*/
package runner
