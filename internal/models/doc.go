// Package models defines the canonical catalog shapes shared by every provider and the reconciliation types built on top of them.
//
// The package contains three categories of types:
//
// 1. Canonical objects: normalized catalog entities every provider adapter must produce
//   - [Artist] : Artist profile with an optional registry (MusicBrainz) id
//   - [Album] : Release with barcode, tracks and external links
//   - [Track] : Recording with duration and ISRC list
//
// 2. Reconciliation results: per-request values discarded after the response is produced
//   - [MatchStatus] / [TrackMatchStatus] : ordered confidence tiers
//   - [AlbumIssue] : data-quality findings between a source album and its registry counterpart
//   - [ReconciledAlbum] / [ReconciledTrack] : one source item with its tier, issues and registry id
//
// 3. Persistent entities: cache rows written by the SQLite cache backend
//   - [CacheEntry] : raw upstream payload with expiry
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
