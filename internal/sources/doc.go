// Package sources provides implementations of the SourceAdapter interface
// for the external intelligence feeds. Each subpackage handles one payload
// shape (scraped HTML, tabular CSV, search API JSON, LLM extraction over
// documents). Shared HTTP behaviour lives in httpfetch and the curated
// fallback sets in curated.
//
// Adapters are registered with the adapter Factory at startup.
package sources
