package crawler

import (
	"path"
	"strings"
)

// Action is the classification of a canonical path.
type Action int

// Classification outcomes.
const (
	// ActionRecurse means the path is a listing page to explore further.
	ActionRecurse Action = iota

	// ActionDownload means the path is downloadable content.
	ActionDownload

	// ActionSkip means the path is neither: an excluded marker, or a
	// directory inside the mirrored subtree.
	ActionSkip
)

// String returns the action name for logging.
func (a Action) String() string {
	switch a {
	case ActionRecurse:
		return "recurse"
	case ActionDownload:
		return "download"
	case ActionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Classifier decides, for a canonical absolute path, whether the crawler
// should recurse into it, download it, or skip it entirely.
//
// Classify is a pure function of the path and the configured markers:
// identical inputs always yield identical results, independent of crawl
// order. The crawler relies on this to guarantee that a downloaded path can
// never also enter a later wave's frontier.
type Classifier struct {
	// IndexMarker excludes listing index pages (e.g. "index.html").
	IndexMarker string

	// TempMarkers exclude in-progress upload artifacts (e.g. ".tmp").
	TempMarkers []string

	// MirrorSubtree marks the secondary mirrored path region: files under
	// it are downloads, directories under it are never recursed because
	// they duplicate the ordinary tree and can cycle.
	MirrorSubtree string

	// ContentPrefixes are filename prefixes that mark ordinary-tree leaves
	// as downloadable content (e.g. "ze_" for zombie-escape maps).
	ContentPrefixes []string
}

// Excluded reports whether the path matches a non-content marker and must
// be dropped before classification.
func (c Classifier) Excluded(p string) bool {
	if c.IndexMarker != "" && strings.Contains(p, c.IndexMarker) {
		return true
	}
	for _, marker := range c.TempMarkers {
		if marker != "" && strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

// Classify maps a canonical absolute path to an Action. Paths matching an
// excluded marker yield ActionSkip; callers normally filter those out with
// Excluded first, so Classify itself only has to separate recursion from
// download.
func (c Classifier) Classify(p string) Action {
	if c.Excluded(p) {
		return ActionSkip
	}

	isDir := strings.HasSuffix(p, "/")

	if c.MirrorSubtree != "" && strings.Contains(p, c.MirrorSubtree) {
		// Mirrored subtree: leaf files are the downloads we came for,
		// directories must never be recursed into.
		if isDir {
			return ActionSkip
		}
		return ActionDownload
	}

	if !isDir {
		name := path.Base(p)
		for _, prefix := range c.ContentPrefixes {
			if prefix != "" && strings.HasPrefix(name, prefix) {
				return ActionDownload
			}
		}
	}

	return ActionRecurse
}
