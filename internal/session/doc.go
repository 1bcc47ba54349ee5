// Package session implements the client-side navigation guards as pure
// functions over mirrored session state. The guards decide, at navigation
// time, whether a route may load or where to redirect instead; they hold
// no state of their own and perform no I/O.
package session
