// Package cli wires the ormtour command tree: running the walkthrough,
// listing its steps, and printing DDL or DBML for the mapped models or
// for structs read from a Go source file.
package cli
