// Package storage declares the durable records the dashboard and the bot
// agree on, and the contracts of the stores that hold them.
//
// The relational store (sqlite subpackage) owns typed entities and sessions.
// The document store (document subpackage) owns the variable-shape room,
// notification, settings and operational-log trees. The two are not
// transactionally linked; callers that write both perform two independent
// writes.
//
// Store implementations return errors built on platform/errors codes. The
// soft-fail policy of the dashboard is applied one level up, in the state
// package, never inside a store.
package storage
