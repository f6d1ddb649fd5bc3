// Package crawler implements the discovery half of the mirror: a
// level-synchronous breadth-first search over a remote directory-listing
// tree.
//
// # Architecture
//
//   - Crawler: the wave-synchronized BFS engine
//   - ParseListing: anchor and <base> extraction from listing HTML
//   - ResolveBase: canonical base URL for a listing page
//   - Classifier: pure recurse/download/skip decision per canonical path
//
// Each wave snapshots the frontier and explores its paths on a bounded
// worker pool; every anchor found is resolved against the page base and
// canonicalized with a HEAD probe before classification. All of a wave's
// results are merged by the orchestrating loop before the next wave
// dispatches, so the frontier and the download set have a single mutator.
//
// Design decision: We implement BFS by hand rather than using a crawling
// framework because:
//  1. Wave-barrier semantics (no page of wave N+1 before all of wave N) are
//     the point, and frameworks schedule pages independently
//  2. The HEAD-probe canonicalization step runs between resolution and
//     classification, inside the wave
//  3. Listing trees are tiny compared to general web crawls; politeness and
//     robots handling would be dead weight against a host we mirror by
//     invitation
package crawler
