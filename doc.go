// Package auth provides the session side of a role-based storefront: access
// token persistence, an API client that refreshes expired tokens, the
// session state container that gates rendering, and the edge route guard
// that keeps visitors out of dashboards that do not match their role.
//
// Token persistence:
//   - TokenStore writes the access token to a client-readable Storage and
//     projects the same value into a cookie so edge middleware can read it.
//     Both copies are written and cleared together.
//
// Request client:
//   - Client attaches the bearer token, and on a 401 performs a single
//     refresh against the refresh endpoint before retrying the request once.
//     The refresh credential is an http-only cookie held by the client's
//     cookie jar and is never read by this package.
//
// Session lifecycle:
//   - SessionStore owns the Session snapshot (user, loading, initialized)
//     and exposes Login, Register, CreateUser, GetProfile and Logout.
//     Bootstrapper hydrates it once per process from a persisted token.
//   - ViewGate decides whether a protected view renders, waits, or
//     redirects, based only on the published Session.
//
// Edge routing:
//   - middleware/routeguard decides allow/redirect before a page renders.
//     The role it reads from the token is an UnverifiedRoleHint: the token
//     signature is not checked, so the backend must authorize every call.
package auth
