package offering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/datasource"
)

// ErrTermNotFound the term data has no key for the requested term
var ErrTermNotFound = errors.New("term not found in section data")

const documentKey = "document"

type document struct {
	version string
	terms   map[string]json.RawMessage
}

// Catalog serves grouped term offerings. Parsed terms are cached for TTL and
// dropped as soon as the source reports a new version; the version is probed
// at most once per check interval. Concurrent loads of one term share a fetch.
type Catalog struct {
	src           datasource.Source
	path          string
	ttl           time.Duration
	checkInterval time.Duration
	cache         *gocache.Cache
	group         singleflight.Group
	logger        *zap.Logger

	mu        sync.Mutex
	version   string
	lastCheck time.Time
	now       func() time.Time
}

// NewCatalog creates a Catalog for the term-data document at path.
func NewCatalog(src datasource.Source, path string, ttl, checkInterval time.Duration, logger *zap.Logger) *Catalog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Catalog{
		src:           src,
		path:          path,
		ttl:           ttl,
		checkInterval: checkInterval,
		cache:         gocache.New(ttl, 0),
		logger:        logger,
		now:           time.Now,
	}
}

// Term returns the offering for a term name such as "Fall" or "Winter 2026".
func (c *Catalog) Term(ctx context.Context, term string) (*TermOffering, error) {
	c.checkVersion(ctx)

	key := "term:" + strings.ToLower(strings.TrimSpace(term))
	if v, ok := c.cache.Get(key); ok {
		return v.(*TermOffering), nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		doc, err := c.document(ctx)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(doc.terms))
		for k := range doc.terms {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dataKey, ok := PickTermKey(keys, term)
		if !ok {
			return nil, fmt.Errorf("%s (available: %s): %w", term, strings.Join(keys, ", "), ErrTermNotFound)
		}
		off, err := BuildTerm(dataKey, seasonOf(term), doc.terms[dataKey])
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, off, gocache.DefaultExpiration)
		c.logger.Info("term offerings loaded",
			zap.String("term", term),
			zap.String("key", dataKey),
			zap.Int("courses", len(off.Courses)),
		)
		return off, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("term load coalesced", zap.String("term", term))
	}
	return v.(*TermOffering), nil
}

// Terms lists the term keys present in the data document.
func (c *Catalog) Terms(ctx context.Context) ([]string, error) {
	doc, err := c.document(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc.terms))
	for k := range doc.terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Refresh re-reads the document when its version changed (or nothing is
// cached yet) and evicts expired entries. It reports whether data was reloaded.
func (c *Catalog) Refresh(ctx context.Context) (bool, error) {
	c.cache.DeleteExpired()

	version, err := c.src.Version(ctx, c.path)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", c.path, err)
	}

	c.mu.Lock()
	current := c.version
	c.lastCheck = c.now()
	c.mu.Unlock()

	if _, cached := c.cache.Get(documentKey); cached && version == current {
		return false, nil
	}

	c.cache.Flush()
	if _, err := c.document(ctx); err != nil {
		return false, err
	}
	c.logger.Info("term data refreshed", zap.String("version", version))
	return true, nil
}

func (c *Catalog) checkVersion(ctx context.Context) {
	c.mu.Lock()
	if c.version == "" || c.now().Sub(c.lastCheck) < c.checkInterval {
		c.mu.Unlock()
		return
	}
	c.lastCheck = c.now()
	known := c.version
	c.mu.Unlock()

	version, err := c.src.Version(ctx, c.path)
	if err != nil {
		c.logger.Warn("term data version probe failed", zap.Error(err))
		return
	}
	if version != known {
		c.logger.Info("term data changed, dropping cache",
			zap.String("old", known),
			zap.String("new", version),
		)
		c.cache.Flush()
	}
}

func (c *Catalog) document(ctx context.Context) (*document, error) {
	if v, ok := c.cache.Get(documentKey); ok {
		return v.(*document), nil
	}
	v, err, _ := c.group.Do(documentKey, func() (interface{}, error) {
		if v, ok := c.cache.Get(documentKey); ok {
			return v, nil
		}
		body, version, err := c.src.Fetch(ctx, c.path)
		if err != nil {
			return nil, fmt.Errorf("fetch term data: %w", err)
		}
		var terms map[string]json.RawMessage
		if err := json.Unmarshal(body, &terms); err != nil {
			return nil, fmt.Errorf("decode term data: %w", err)
		}
		doc := &document{version: version, terms: terms}
		c.cache.Set(documentKey, doc, gocache.DefaultExpiration)

		c.mu.Lock()
		c.version = version
		c.lastCheck = c.now()
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		c.logger.Error("load term data failed", zap.Error(err))
		return nil, err
	}
	return v.(*document), nil
}

func seasonOf(term string) string {
	f := strings.Fields(term)
	if len(f) == 0 {
		return term
	}
	if name, ok := curriculum.CanonicalTerm(f[0]); ok {
		return name
	}
	return f[0]
}
