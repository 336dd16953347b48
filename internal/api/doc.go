// Package api provides the read-only report API for busdecode.
//
// While a capture is decoded (and after, until the process is stopped)
// the server exposes the live device registry, the decode history kept in
// SQLite, and a WebSocket feed of decoded transactions.
//
// # Endpoints
//
//	GET /api/v1/health
//	GET /api/v1/devices
//	GET /api/v1/devices/{address}
//	GET /api/v1/devices/{address}/transactions?limit=&offset=&run_id=
//	GET /api/v1/transactions?limit=&offset=&run_id=&condition=
//	GET /api/v1/ws
//
// WebSocket clients subscribe to channels with
//
//	{"type":"subscribe","id":"1","payload":{"channels":["transaction.decoded"]}}
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
