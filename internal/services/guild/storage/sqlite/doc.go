// Package sqlite provides the relational guild state store backed by a
// single SQLite file.
//
// The file is opened in WAL mode with foreign keys enforced, so readers are
// not blocked by the writer and dangling guild or room references are
// rejected at write time. Every statement is atomic on its own; operations
// spanning two statements (DeleteRoom) are not.
package sqlite
