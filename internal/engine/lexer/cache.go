package lexer

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingLexer memoizes token streams by content hash so unchanged files are
// not rescanned across watch-mode rebuilds. Cached slices are shared and
// must be treated as read-only.
type CachingLexer struct {
	inner SourceLexer
	cache *lru.Cache[[sha256.Size]byte, []Token]

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCachingLexer(inner SourceLexer, size int) (*CachingLexer, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[[sha256.Size]byte, []Token](size)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &CachingLexer{inner: inner, cache: cache}, nil
}

func (c *CachingLexer) Tokenize(path string) ([]Token, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tokens, err := c.TokenizeSource(src)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return tokens, nil
}

func (c *CachingLexer) TokenizeSource(src []byte) ([]Token, error) {
	key := sha256.Sum256(src)
	if tokens, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return tokens, nil
	}
	c.misses.Add(1)
	tokens, err := c.inner.TokenizeSource(src)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, tokens)
	return tokens, nil
}

// Len reports the number of cached streams.
func (c *CachingLexer) Len() int {
	return c.cache.Len()
}

// Lookups returns the cumulative hit and miss counts.
func (c *CachingLexer) Lookups() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
