// Package hub provides the real-time order-event broadcast hub.
//
// The package implements:
//   - Client: one admitted staff WebSocket connection
//   - Registry: role-partitioned set of live connections
//   - Hub: message dispatch, registry-wide broadcast, heartbeat reaping
//   - Handler: connection admission and the read/write pumps
//
// Key behaviors:
//   - Admission authenticates the token and classifies the connection under
//     the requested role before any frame is dispatched
//   - order_created and orders_updated events fan out to every live
//     connection regardless of role
//   - A two-tick heartbeat evicts connections that stop answering pings
//   - Per-message errors are replied to the sender only and never end the
//     connection
package hub
