// Package reconcile matches one provider's albums against registry releases and diffs their metadata.
//
// Matching runs in tiers. A source album whose URL appears in a registry release's external links is a
// [models.LinkMatch]. Otherwise its normalized name is looked up and a hit is a [models.NameMatch]. Anything
// else is [models.Unmatched]. Issues are computed only for matched albums, since there is nothing to diff
// against otherwise.
//
// When several registry releases share a link or a normalized name, the [TieBreak] policy decides which one
// is used. The engine is stateless and safe for concurrent use.
package reconcile
