// Package session manages connection sessions. A session starts anonymous when
// the WebSocket connects and is bound to a user and couple by a join. State is
// stored in Redis so that other server instances can see who is online.
package session
