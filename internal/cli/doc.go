// Package cli implements the journal command line: listing, adding, editing
// and deleting memories, session login/logout, and live status and
// invalidation feeds.
//
// Every command builds the client from configuration (see package config)
// before it runs and closes it afterwards, so concurrent invocations share
// state only through the data directory.
package cli
