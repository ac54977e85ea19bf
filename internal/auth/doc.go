// Package auth owns the client-side authentication lifecycle.
//
// # Gateway
//
// A Gateway is created per client (one per CLI process, one per browser
// session in the console) and passed explicitly to whatever needs the
// current identity. It never lives in a package variable.
//
//	gw := auth.NewGateway(client, store, logger)
//	if err := gw.Init(ctx); err != nil { ... }   // seed from the store
//	sess, err := gw.Login(ctx, email, password)
//	...
//	gw.Teardown(ctx)                               // logout, clears the store
//
// State machine:
//
//	Unauthenticated --Login/Signup--> Authenticating --> Authenticated | Error
//	Error           --Login/Signup--> Authenticating
//	Authenticated   --Logout--------> Unauthenticated
//
// The last error is cleared at the start of every attempt. Blank fields and
// unknown signup roles fail with a validation error before any request is
// sent. Server failures surface as api.ErrAuthenticationFailed carrying the
// server's reason, or "login failed" / "signup failed" when it gave none.
//
// # Token Inspection
//
// Stored bearer tokens that are JWTs are checked for an expired exp claim
// on Init (signature not verified). Opaque tokens are left to the API.
//
// # Request Context
//
// Console handlers attach the session with WithSession and read it back
// with FromContext.
package auth
