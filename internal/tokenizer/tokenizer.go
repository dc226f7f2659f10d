// Package tokenizer turns text into token counts for budget decisions.
// A run must use a single Tokenizer so every cumulative count is comparable.
package tokenizer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	// DefaultEncoding is the BPE encoding used by the summary models.
	DefaultEncoding = "cl100k_base"
	// EncodingChars selects the character-ratio estimator instead of a BPE encoding.
	EncodingChars = "chars"
	// DefaultCacheSize bounds the number of memoized counts.
	DefaultCacheSize = 4096
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter returns the number of tokens in a text.
type Counter interface {
	Count(text string) int
}

// Tokenizer counts tokens with one fixed encoding and memoizes the results.
type Tokenizer struct {
	encoding string
	count    func(string) int
	cache    *lru.Cache[string, int]
}

// New creates a Tokenizer for the named encoding.
func New(encoding string, cacheSize int) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	var count func(string) int
	if encoding == EncodingChars {
		count = EstimateTokenCount
	} else {
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
		}
		count = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}

	cache, err := lru.New[string, int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}

	return &Tokenizer{
		encoding: encoding,
		count:    count,
		cache:    cache,
	}, nil
}

// Encoding returns the encoding name this tokenizer was built with.
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	if n, ok := t.cache.Get(text); ok {
		return n
	}
	n := t.count(text)
	t.cache.Add(text, n)
	return n
}

// CountAll returns the token count of texts joined by sep.
func CountAll(c Counter, texts []string, sep string) int {
	return c.Count(strings.Join(texts, sep))
}

// EstimateTokenCount provides a rough estimation of token count for text.
// This is a simplified approximation: 1 token ≈ 3.5 characters of English text.
func EstimateTokenCount(text string) int {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")

	charCount := utf8.RuneCountInString(text)
	return int(math.Ceil(float64(charCount) / 3.5))
}
