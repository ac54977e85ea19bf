// Package api is the HTTP client for the fake-news detection REST API.
//
// The API is an external collaborator: it owns the schema, the triggers that
// recompute trust ratings and review status, and all authorization. This
// package only moves JSON. Row types keep the server's column names and
// numeric columns keep the server's exact text (see Number), so the console
// never recomputes or reformats server-maintained values.
//
// Every method returns an *Error whose Kind is one of network failure,
// validation failure, authentication failure, or server error:
//
//	rows, err := client.ListSources(ctx)
//	if errors.Is(err, api.ErrNetworkFailure) {
//	    // server unreachable
//	}
//
// Client.WithToken returns a copy that sends the session's bearer token.
package api
