// Package tui implements the operator dashboard: a bubbletea terminal
// UI that polls the replication plane's durable stores for live
// subscription states, subscriber trust scores, and recent protection
// events.
//
// The dashboard never writes to those stores and holds no connection
// of its own; it is handed a [Source] (typically a [StoreSource]
// wrapping the registry, trust, and protection stores already open in
// the host process) and refreshes from it on a timer.
package tui
