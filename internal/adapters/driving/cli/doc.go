// Package cli provides the cobra command tree. Commands depend only on
// driving ports; the binary's main package supplies a Builder that wires
// the concrete adapters.
package cli
