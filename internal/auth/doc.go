// Package auth owns users, sessions, and the authorization gate.
//
// Three pieces cooperate to gate every mutating operation:
//
//   - Store: durable user accounts with role and per-user device allowlist.
//   - Sessions: in-memory bearer tokens with a sliding one-hour expiry.
//     Sessions do not survive a restart; everyone logs in again after boot.
//   - Gate: the pure predicate answering "may the holder of this token
//     perform this operation on this channel", with a three-valued outcome
//     so transports can distinguish 401 from 403.
//
// Lock ordering for cross-registry operations is Sessions, then Store, then
// the device registry. The Gate acquires them one at a time in that order.
package auth
