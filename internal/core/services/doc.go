// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Orchestrator runs sources on a bounded ants worker pool and never
// imports a concrete adapter; everything it touches arrives through ports.
package services
