package cache

// Keyer derives cache keys. Implementations must return equal keys exactly
// when their inputs are equal.
type Keyer interface {
	// ResultKey identifies an optimization of one network with one library
	// under one configuration. config is hashed through its JSON encoding.
	ResultKey(networkHash, libraryHash string, config any) string

	// ArtifactKey identifies a rendering of a cached result.
	ArtifactKey(resultKey string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the rendering options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes every key component with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey returns "result:<sha256>".
func (DefaultKeyer) ResultKey(networkHash, libraryHash string, config any) string {
	return hashKey("result", networkHash, libraryHash, config)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultKey, opts)
}
