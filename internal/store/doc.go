// Package store provides PostgreSQL persistence for users, messages, and
// workspaces.
//
// Users carry the custom identity scheme's credential digest and a query
// display counter. Messages are the per-user query/answer history with
// serialized citation sources; a message may belong to one workspace.
// Workspaces are named collections grouping history.
//
// # Change notifications
//
// Row-level changes to messages and workspaces fan out over PostgreSQL
// LISTEN/NOTIFY (see db/migrations). [Store.Listen] exposes them as a
// channel the caller drains; the subscription ends when its context does.
//
// # Concurrency
//
// Store is safe for concurrent use. All state lives in PostgreSQL.
package store
