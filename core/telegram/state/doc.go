// Package state keeps per-chat conversation state for multi-step flows.
// A chat is present in the store only while it is inside a flow; absence means idle.
package state
