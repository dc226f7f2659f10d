// Package contextualize prefixes each excerpt with the year and the name of
// the appeal it comes from.
package contextualize

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/IFRCGo/extractor-operational-learnings/internal/goapi"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
)

// DefaultMaxAge is how long a cached appeal name is trusted.
const DefaultMaxAge = 7 * 24 * time.Hour

// AppealSource lists every appeal known to the platform.
type AppealSource interface {
	FetchAppeals(ctx context.Context) ([]goapi.Appeal, error)
}

// AppealCache keeps appeal names between runs.
type AppealCache interface {
	GetAppealNames(codes []string, maxAge time.Duration) (map[string]string, error)
	CacheAppeals(appeals []core.Appeal) error
}

// Contextualizer resolves appeal names and rewrites excerpt texts.
type Contextualizer struct {
	source AppealSource
	cache  AppealCache
	maxAge time.Duration
}

// New creates a Contextualizer. cache may be nil.
func New(source AppealSource, cache AppealCache, maxAge time.Duration) *Contextualizer {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Contextualizer{source: source, cache: cache, maxAge: maxAge}
}

// Contextualize returns a copy of excerpts with every learning prefixed.
func (c *Contextualizer) Contextualize(ctx context.Context, excerpts []core.Excerpt) ([]core.Excerpt, error) {
	if len(excerpts) == 0 {
		return nil, nil
	}

	names, err := c.Resolve(ctx, appealCodes(excerpts))
	if err != nil {
		return nil, err
	}
	return Apply(excerpts, names), nil
}

// Resolve returns the appeal name for each code. Cached names are used when
// fresh; otherwise the appeal table is fetched once and written back.
func (c *Contextualizer) Resolve(ctx context.Context, codes []string) (map[string]string, error) {
	names := make(map[string]string)
	if len(codes) == 0 {
		return names, nil
	}

	if c.cache != nil {
		cached, err := c.cache.GetAppealNames(codes, c.maxAge)
		if err != nil {
			logger.Warn("Appeal name cache unavailable", "error", err)
		} else {
			names = cached
		}
	}

	missing := 0
	for _, code := range codes {
		if _, ok := names[code]; !ok {
			missing++
		}
	}
	if missing == 0 {
		logger.Debug("Appeal names served from cache", "appeals", len(codes))
		return names, nil
	}

	appeals, err := c.source.FetchAppeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch appeals: %w", err)
	}

	fetched := make([]core.Appeal, 0, len(appeals))
	for _, a := range appeals {
		if a.Code == "" {
			continue
		}
		fetched = append(fetched, core.Appeal{Code: a.Code, Name: a.Name})
		names[a.Code] = a.Name
	}
	logger.Info("Fetched appeal names", "appeals", len(fetched), "missing_from_cache", missing)

	if c.cache != nil {
		if err := c.cache.CacheAppeals(fetched); err != nil {
			logger.Warn("Failed to cache appeal names", "error", err)
		}
	}

	return names, nil
}

// Apply prefixes each learning using names. An appeal without a known name is
// referred to by its code.
func Apply(excerpts []core.Excerpt, names map[string]string) []core.Excerpt {
	out := make([]core.Excerpt, len(excerpts))
	for i, e := range excerpts {
		name, ok := names[e.AppealCode]
		if !ok || name == "" {
			name = e.AppealCode
		}
		e.Learning = Prefix(e.AppealYear, name) + e.Learning
		out[i] = e
	}
	return out
}

// Prefix returns the provenance text put in front of a learning.
func Prefix(year int, appealName string) string {
	return fmt.Sprintf("In %d in %s: ", year, appealName)
}

func appealCodes(excerpts []core.Excerpt) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, e := range excerpts {
		if e.AppealCode == "" || seen[e.AppealCode] {
			continue
		}
		seen[e.AppealCode] = true
		codes = append(codes, e.AppealCode)
	}
	sort.Strings(codes)
	return codes
}
