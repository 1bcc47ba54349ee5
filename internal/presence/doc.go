// Package presence tracks which operators are currently connected.
//
// The registry maps operator IDs to their active connection handles;
// an operator with several tabs or devices open appears once in the
// online list. The websocket layer broadcasts the full snapshot to all
// peers on every membership change - a full list rather than a diff,
// trading bandwidth for immunity to lost-diff ordering bugs.
package presence
