// Package session keeps a single notion of "the current authenticated user"
// consistent between long-lived client code and per-request server handlers
// when authentication is delegated to an external identity provider.
//
// Client side:
//   - Factory.ForClient returns a ProviderClient bound to local persistence
//     that refreshes tokens in the background and publishes AuthEvents.
//   - Watcher consumes that event stream in order and keeps the persisted
//     Session and the observable UserHolder in sync (last write wins).
//
// Server side:
//   - RequestBinder derives a ProviderClient and a decoded User from the
//     cookies of an inbound request. The derived state lives exactly as long
//     as the request; nothing is cached across requests.
//   - Any token refresh performed while serving a request is mirrored back to
//     the response cookies before it is sent. Skipping that write is the one
//     way the two sides can permanently diverge, so failures are surfaced
//     through the ActivitySink rather than silently dropped.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Watcher and the
//     RequestBinder to describe sign-in, sign-out, refresh, and cookie-write
//     failures. Sinks run best-effort so you can forward events to a database
//     or queue without blocking request handling.
package session
