package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/ftl/pkg"
)

// ErrReadInput is returned when a template can't be read.
var ErrReadInput = pkg.NewError("failed to read template")

// Cache holds parsed templates by name. A template is parsed again only
// when its source changes. A Cache is safe for concurrent use.
type Cache struct {
	opts    []Option
	entries sync.Map // name → *cacheEntry
}

// cacheEntry is the parse of one version of a template source.
type cacheEntry struct {
	once sync.Once
	hash uint64
	tmpl *Template
	err  error
}

// NewCache returns a cache that parses templates with opts.
func NewCache(opts ...Option) *Cache {
	return &Cache{opts: opts}
}

// Parse returns the template name parsed from source, reusing the last
// parse of the same source.
func (c *Cache) Parse(ctx context.Context, name, source string) (*Template, error) {
	sum := xxh3.HashString(source)
	fresh := &cacheEntry{hash: sum}

	v, hit := c.entries.LoadOrStore(name, fresh)

	e, _ := v.(*cacheEntry)
	if e == nil || e.hash != sum {
		c.entries.Store(name, fresh)
		e, hit = fresh, false
	}

	cfg := pkg.Apply(defaultConfig(), c.opts...)
	cfg.logger.TraceContext(ctx, "cache lookup",
		slog.String("template", name),
		slog.String("source_hash", strconv.FormatUint(sum, 16)),
		slog.Bool("cache_hit", hit),
	)

	e.once.Do(func() {
		e.tmpl, e.err = Parse(name, source, c.opts...)
	})

	return e.tmpl, e.err
}

// ParseReader reads the source of template name from r and parses it like
// [Cache.Parse].
func (c *Cache) ParseReader(ctx context.Context, name string, r io.Reader) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("template", name))
	}

	return c.Parse(ctx, name, string(data))
}

// Forget removes the template name from the cache.
func (c *Cache) Forget(name string) { c.entries.Delete(name) }

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	n := 0

	c.entries.Range(func(_, _ any) bool {
		n++

		return true
	})

	return n
}

// Clear removes every cached template.
func (c *Cache) Clear() { c.entries.Clear() }
