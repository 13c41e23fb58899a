package modver

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultRefCacheSize bounds how many reference indexes a RefCache
// retains. Batch runs rarely alternate among more than a handful of
// reference kernels.
const DefaultRefCacheSize = 8

// RefCache reads reference modules from disk and memoizes their symbol
// indexes by path, so a batch run patching a directory of modules
// against the same reference kernel parses it once.
//
// Entries are cached for the life of the cache; a reference file
// modified mid-run keeps serving its first-read index.
type RefCache struct {
	cache *lru.Cache
}

// NewRefCache returns a cache holding at most size reference indexes.
func NewRefCache(size int) (*RefCache, error) {
	if size <= 0 {
		size = DefaultRefCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &RefCache{cache: c}, nil
}

// Index returns the symbol index of the reference module at path,
// reading and parsing the file on first use.
func (rc *RefCache) Index(path string) (SymbolIndex, error) {
	if v, ok := rc.cache.Get(path); ok {
		return v.(SymbolIndex), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx, err := IndexModule(data)
	if err != nil {
		return nil, fmt.Errorf("reference module %s: %w", path, err)
	}
	rc.cache.Add(path, idx)
	return idx, nil
}

// Len reports how many reference indexes are currently cached.
func (rc *RefCache) Len() int {
	return rc.cache.Len()
}
