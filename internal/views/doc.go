// Package views decides which panels a session may see.
//
// The rules live in one table (see Table) and are consumed by Compose and
// Visible. The console routes and the CLI commands both ask Visible before
// serving a panel, so the table is the only place client-side role gating
// is expressed. The API still authorizes every request on its own.
package views
