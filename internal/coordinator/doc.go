// Package coordinator drives the poll cycle for a single thermostat.
//
// Each configured thermostat gets one Coordinator running one goroutine.
// On every tick the coordinator refreshes the device's query endpoints
// inside a per-cycle timeout, then reports the outcome to its sink.
//
// # Connection State
//
// The coordinator owns the device's connection state. The rule is strict:
// the state is true immediately after a fully successful cycle (login and
// every enabled query endpoint refreshed) and false the moment any part
// of a cycle fails. Consumers use it to gate availability, so a partial
// refresh never counts as connected.
//
// A failed cycle does not stop polling; the next tick retries, including
// the login when the device was never reached or the session was lost.
package coordinator
