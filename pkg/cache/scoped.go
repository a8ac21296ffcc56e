package cache

// ScopedKeyer prefixes every key of an inner keyer, so that several
// deployments can share one Redis instance:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey returns the prefixed result key.
func (k *ScopedKeyer) ResultKey(networkHash, libraryHash string, config any) string {
	return k.prefix + k.inner.ResultKey(networkHash, libraryHash, config)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultKey, opts)
}
