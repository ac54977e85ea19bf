// Package refresh coordinates re-fetching of list panels after mutations.
//
// Each view tree owns one Coordinator. A panel that changes server state
// calls Bump after its own success path; every list panel remembers the
// token it last rendered for and fetches again when the token moves.
//
// Subscribe registers a callback that runs synchronously inside Bump.
// Latest adapts that into a channel for slow consumers (the console's event
// stream): bursts collapse into a single delivery of the newest token.
package refresh
