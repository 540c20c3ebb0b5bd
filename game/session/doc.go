// Package session keeps track of running puzzle games.
//
// A Manager maps short, case-insensitive session IDs to service.Session
// values, each owning its own engine. Generated IDs are four random hex
// characters. When built with a SessionPersistence the manager writes
// sessions through on creation and falls back to storage on lookup misses,
// so sessions survive restarts.
//
// FilePersistence stores one indented JSON file per session holding the
// puzzle, its catalogue ID and the full game state including move history.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", puzzles)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", "classic", puzzle)
//
// The manager is safe for concurrent use. Engines are not; callers
// serialize moves on a session, as the game service does.
package session
