// Package auth owns the client-side session: the persisted token pair, the signed-in user summary
// and the transitions between signed-in and signed-out.
//
// [Session] is the only writer of the token pair. It implements [services.Credentials], so the
// [services.APIService] returned by [Session.Client] attaches its bearer token and calls back into
// [Session.Refresh] after a 401. A failed refresh signs the user out.
//
// Other stores follow auth transitions through [Session.Subscribe]. Listeners run synchronously,
// outside the session lock, after the state change is visible.
//
// Registration input is validated locally before any request; failures are [*ValidationError].
package auth
