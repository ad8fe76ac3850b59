// Package document persists the schemaless guild trees shared with the bot
// process: rooms and notification campaigns in config.json, free-form
// settings in settings.json, and the bounded operational log in logs.json.
//
// Every operation reads the whole file and, for writes, replaces the whole
// file. Writers are serialized in-process with a mutex and across processes
// with a named machine lock, and files are replaced atomically, so readers
// never observe a torn document and writers using this package never lose
// each other's updates. A process that rewrites the files without taking the
// lock is still last-write-wins.
//
// Unparseable files read as their empty default and are logged; the next
// write replaces them.
package document
