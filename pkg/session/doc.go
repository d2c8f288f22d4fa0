/*
Package session serializes access to persisted conversations.

A Manager wraps a ports.SessionStore with per-session in-process locks and,
when configured, a distributed lock so several server replicas never write
the same session at once.
*/
package session
