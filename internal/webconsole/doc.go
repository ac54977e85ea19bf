// Package webconsole provides the browser console for factdesk.
//
// # Overview
//
// The console is a server-rendered htmx front end over the fact-checking
// API. It owns no domain data; it keeps one view tree per browser session:
//
//   - an auth.Gateway whose durable slot is a row in the SQLite store
//   - an api.Client carrying that session's bearer token
//   - a refresh.Coordinator shared by the session's panels
//   - per-panel form state and cached listings
//
// Trees live in a Registry and are evicted after console.idle_timeout
// without a request. The persisted session survives eviction; the next
// request rebuilds the tree from it.
//
// Login and signup move the session to a new ID and cookie. A 401 from
// the API on any panel signs the tree out.
//
// # Routes
//
//	GET/POST /console/login, /console/signup   public auth pages
//	POST     /console/logout
//	GET      /console/                         composed dashboard
//	GET      /console/panels/{panel}           panel fragment (403 if hidden)
//	POST     /console/panels/{panel}           form submit
//	POST     /console/reports/{id}/review      mark a report reviewed
//	GET      /console/events                   SSE refresh stream
//	GET      /console/help                     roles and glossary
//	GET      /health, /health/ready
//
// # Submissions
//
// Every rendered form carries a CSRF token and a one-shot submission ID
// from a dedupe.Guard scoped to the browser session. A replayed ID is
// answered with 409 and never reaches the API. A successful submit bumps
// the tree's coordinator; the SSE stream and an HX-Trigger header tell the
// page's list panels to re-fetch.
package webconsole
