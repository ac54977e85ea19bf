// Package panels implements the console's resource panels.
//
// A Form holds uncommitted field values and issues exactly one mutating
// request per submit. A Lister renders one primary endpoint, optionally
// enriched by secondary reads; ListState caches its listing against the
// refresh token it last observed so re-fetches happen once per change.
//
// The concrete panels are looked up by views.PanelID with LookupForm and
// LookupLister. Visibility is not checked here; callers gate through
// views.Visible first.
package panels
