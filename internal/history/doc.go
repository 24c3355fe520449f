// Package history persists entity state changes in SQLite.
//
// The bridge records a row for every state it publishes, keyed by device
// and entity. The store serves the REST API's history endpoint and gives
// operators a local audit trail independent of the time-series database.
// A background pruner enforces the configured retention window.
package history
