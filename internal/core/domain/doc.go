// Package domain defines the core business entities for the ingestion pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawRecord: A source-specific record emitted by a source adapter's parse step
//   - Record: A normalised record (FailureRecord, LayoffRecord, FundingRecord,
//     ProductLaunchRecord, HiringRecord) carrying its raw provenance
//   - CacheEntry: A cached fetch payload governed by a TTL
//   - PipelineRun: The immutable summary of one end-to-end run
//   - SourceConfig: A configured external source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
