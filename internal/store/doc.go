// Package store provides local persistence for the console using SQLite.
//
// # Overview
//
// The console keeps no domain data of its own: users, sources, articles,
// reports and credibility checks all live behind the external API. The only
// thing persisted locally is the browser session slot, so a console restart
// does not log everyone out.
//
// # Data Model
//
//   - ConsoleSession: an opaque serialized session payload keyed by the
//     random ID carried in the session cookie, with an expiry.
//
// Expired rows are treated as absent on read and removed by
// DeleteExpiredConsoleSessions, which the console runs periodically.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/factdesk/console.db")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package store
