// Package venstar implements the local HTTP API of Venstar ColorTouch
// thermostats.
//
// This package manages:
//   - API root negotiation (firmware API version, unit type, model)
//   - Polling of /query/info, /query/sensors, /query/runtimes, /query/alerts
//   - Control posts to /control and /settings
//   - HTTP digest authentication for commercial units
//   - Optional screen PIN on control requests
//
// # Protocol
//
// ColorTouch thermostats expose a small JSON-over-HTTP API on the local
// network. State is pulled, never pushed: callers poll the query endpoints
// on an interval. Commands are form-encoded POSTs and the device replies
// with {"success": true} or {"error": true, "reason": "..."}.
//
// The device treats heat and cool setpoints as a pair: /control posts must
// always carry both, plus the current mode and fan setting. In AUTO mode
// the device additionally requires cooltemp - heattemp >= setpointdelta.
// The client enforces both rules before sending.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Cached query results are
// guarded by an internal mutex; getters return the last polled values.
//
// # Usage
//
//	client := venstar.New("http://192.168.1.40", venstar.Options{Timeout: 5 * time.Second})
//	if err := client.Login(ctx); err != nil {
//	    return err
//	}
//	if err := client.UpdateInfo(ctx); err != nil {
//	    return err
//	}
//	fmt.Println(client.Name(), client.SpaceTemp())
package venstar
