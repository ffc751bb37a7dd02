// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - SourceAdapter: Fetches and parses one external source
//   - AdapterFactory: Creates source adapters from configuration
//   - Normaliser: Re-expresses raw records as normalised records
//   - CacheStore: TTL-governed fetch cache (BadgerDB)
//   - RecordStore: Normalised record persistence (SQLite)
//   - RunStore: Append-only pipeline run log (SQLite)
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - LLMService: Structured extraction. Without it, AI extraction sources are skipped.
//   - CuratedProvider: Curated fallback sets. Without one, a failed source yields zero records.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, source or normaliser package
package driven
