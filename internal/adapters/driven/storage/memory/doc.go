// Package memory provides in-memory implementations of the record store and
// run log. They are used by tests and by dry runs that should not touch disk.
package memory
