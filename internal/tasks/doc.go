// Package tasks runs catalog operations across providers and the release registry with real-time progress reporting.
//
// # Core Operations
//
// [CatalogEngine] exposes two operations:
//
//  1. [CatalogEngine.Reconcile] : Compare one provider artist's catalog against the registry
//     - Resolves the input (artist id, comma-separated ids or artist link) to a provider and ids
//     - Resolves the registry artist through the artist link when no mbid is given
//     - Fetches the provider catalog and the registry's own and featured releases concurrently
//     - Optionally fetches album details and registry tracks for a full comparison
//     - Returns a [ReconcileReport] with tiered albums, counts and partial-failure warnings
//
//  2. [CatalogEngine.DeepSearch] : Identify the registry artist when no link exists
//     - Collects barcodes from the artist's albums, fetching details when needed
//     - Looks each barcode up in the registry and tallies the credited artists
//     - Picks the most common artist, breaking ties by name similarity
//     - Returns a [DeepSearchResult] whose Outcome distinguishes a match from empty results
//
// # Partial Failures
//
// Catalog pages are fetched sequentially per artist id and each page is retried with [shared.Retry].
// When a page keeps failing, that id's fetch is abandoned and a [Warning] carrying the provider is added
// to the report. Operations only fail outright on caller input errors or a violated invariant.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
