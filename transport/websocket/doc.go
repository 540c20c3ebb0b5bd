// Package websocket pushes live board updates to browser and tool clients.
//
// Clients connect to /ws?session=<id>. The first frame is a "snapshot"
// carrying the current GameState; after that the API broadcasts a
// "state_update" frame whenever a move, bulk move or reset changes the
// session. Frames are JSON Message values, one per websocket message.
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Close()
//
//	hub.BroadcastToSession(sessionID, state)
//
// The Hub owns its client table on the Run goroutine; registration,
// broadcasts and counts are all channel requests. Clients that fall behind
// are disconnected rather than blocking the hub.
package websocket
