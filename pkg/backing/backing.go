// Package backing describes the identity of the object store a metadata
// cache sits in front of.
//
// The cache never talks to the backing store for reads or writes; it only
// needs the store's identity so that scheme-less paths can be resolved to
// fully-qualified canonical keys. Implementations that can also enumerate
// remote listings (see the s3 subpackage) let callers prime the cache with
// authoritative directory listings.
package backing

// Identity identifies a backing object store. Scheme and Authority together
// form the prefix of every canonical path key resolved against this store,
// e.g. scheme "s3" and authority "my-bucket" yield keys under
// "s3://my-bucket/".
type Identity interface {
	// Scheme returns the URI scheme of the backing store, e.g. "s3".
	Scheme() string

	// Authority returns the URI authority (bucket, host) of the backing
	// store. May be empty for stores without an authority component.
	Authority() string
}

// Static is a fixed Identity value. Useful for tests and for callers that
// know the backing store coordinates up front.
type Static struct {
	URIScheme    string
	URIAuthority string
}

// Scheme implements Identity.
func (s Static) Scheme() string { return s.URIScheme }

// Authority implements Identity.
func (s Static) Authority() string { return s.URIAuthority }
