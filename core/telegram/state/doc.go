// Package state keeps per-user conversation state: an in-memory FSM manager
// for dialog steps and a Store abstraction (memory or postgres) for data
// that must outlive a single update, such as the current action.
package state
