// Package server provides HTTP routing, middleware, sessions, and the OAuth
// and playback endpoints for the visualizer bridge.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Authentication
//
// Two OAuth flows share the same provider client. [AuthHandler] implements
// the browser flow: /auth/login stores a random state token in the session
// and redirects to the consent page; /auth/callback checks the state,
// exchanges the code, persists the token record, and marks the user as the
// active playback source. [OAuthHandler] implements the one-shot CLI flow,
// processing a single callback and delivering the token over a channel.
//
// Sessions live in an in-memory [SessionStore] keyed by random ids held in
// an HttpOnly cookie. The SQLite token record is the durable credential; a
// restart only costs the browser session.
//
// # Playback API
//
// [APIHandler] serves the JSON endpoints. /api/currently-playing and
// /api/audio-features require an authenticated session and translate
// provider failures into 401/429/502 responses. /api/device/data is the
// firmware feed: no authentication, and every response is a 200 carrying
// either a full snapshot or the not-playing fallback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
