// Package auth implements the session core of the GymHub back office.
//
// It covers credential verification (Argon2id over a stored salt),
// issuance and verification of the two signed token classes (short-lived
// access tokens carrying role and display claims, long-lived rotation
// tokens carrying identity only), the role gate predicate, and the
// operator directory the core reads credentials and roles from.
//
// One signing secret exists per token class and is shared by every
// verification site for that class: the websocket handshake verifies
// against the access secret, the refresh path against the rotation
// secret. Rotation tokens are stateless - the server keeps no record of
// issued tokens and a token remains reusable until its expiry.
package auth
