package crawler

import (
	"fmt"
	"net/url"
)

// ResolveBase determines the canonical base URL for a listing page:
// an explicit <base href> declaration wins, otherwise the page URL itself
// is the base, so the directory-relative anchors autoindex pages emit
// resolve under the listing's own path.
//
// A relative base href is resolved against the page URL first, which is the
// browser behavior and matters for hosts that declare <base href="/">.
func ResolveBase(pageURL *url.URL, baseHref string) (*url.URL, error) {
	if baseHref == "" {
		base := *pageURL
		return &base, nil
	}

	ref, err := url.Parse(baseHref)
	if err != nil {
		return nil, fmt.Errorf("%w: base href %q: %v", ErrParseListing, baseHref, err)
	}

	base := pageURL.ResolveReference(ref)
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base href %q resolves to non-absolute URL", ErrParseListing, baseHref)
	}
	return base, nil
}
