package store

// Port is the narrow persistence surface the trackers depend on. The concrete
// store (database KV table, in-memory map) is injected; the core never talks
// to gorm directly.
type Port interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// List returns key/value pairs whose key starts with prefix.
	List(prefix string) (map[string][]byte, error)
}
