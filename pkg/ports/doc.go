/*
Package ports defines the driven ports (interfaces) of the orchestrator.

These interfaces decouple the run loop from its collaborators, so that model
providers and session storage can be swapped without touching the loop.

# Key Interfaces

  - Transport: streams a chat completion as typed events.
  - SessionStore: persists conversation sessions (memory, Redis, SQLite).
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports
