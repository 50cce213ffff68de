package cache

import (
	"bytes"
	"encoding/gob"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

const (
	treeBucket = "trees"
	dbFileName = "parse.db"

	memDefaultExpiry = 5 * time.Minute
	memCleanupPeriod = 10 * time.Minute
)

// ParseFunc is the external parser collaborator. It must be
// deterministic for identical input text.
type ParseFunc func(text string) (*parser.Tree, error)

// Config controls cache behavior for one scan invocation
type Config struct {
	Enabled   bool
	Directory string        // empty = in-memory only, no persistence
	TTL       time.Duration // prune age for entries of vanished files; 0 = never
}

// entry is the stored value for one (path, fingerprint) key.
// A non-empty ParseErr marks a tombstone for unparsable content.
type entry struct {
	Tree     *parser.Tree
	ParseErr string
	StoredAt int64 // unix seconds, used only by Prune
}

// Cache maps (file path, content fingerprint) to parsed trees so
// unchanged files are never re-parsed. Entries are never mutated,
// only replaced; a write race on the same key is harmless because
// identical content parses to an equivalent tree.
type Cache struct {
	cfg    Config
	parse  ParseFunc
	logger *logrus.Logger

	mem *gocache.Cache
	db  *bolt.DB

	mu sync.Mutex // serializes evict-then-store sequences per scan

	parserCalls atomic.Int64
	hits        atomic.Int64
}

// New creates a Cache backed by the given parser collaborator.
// When cfg.Directory is set, entries persist across invocations in a
// bbolt store under that directory.
func New(cfg Config, parse ParseFunc, logger *logrus.Logger) (*Cache, error) {
	c := &Cache{
		cfg:    cfg,
		parse:  parse,
		logger: logger,
		mem:    gocache.New(memDefaultExpiry, memCleanupPeriod),
	}

	if cfg.Enabled && cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.Directory, err)
		}
		db, err := bolt.Open(filepath.Join(cfg.Directory, dbFileName), 0644, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open cache store: %w", err)
		}
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists([]byte(treeBucket))
			return err
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create cache bucket: %w", err)
		}
		c.db = db
	}
	return c, nil
}

// Close releases the persistent store, if any
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ParserCalls returns how many times the parser collaborator ran
func (c *Cache) ParserCalls() int64 { return c.parserCalls.Load() }

// Hits returns how many lookups were served without parsing
func (c *Cache) Hits() int64 { return c.hits.Load() }

func cacheKey(path, fingerprint string) string {
	return path + "\x00" + fingerprint
}

// GetOrParse returns the parsed tree for the unit, parsing only when
// no entry matches the unit's current fingerprint. The returned bool
// reports whether the lookup was a cache hit. A cached parse failure
// is replayed as the same ParseError without re-invoking the parser.
func (c *Cache) GetOrParse(unit *models.SourceUnit) (*parser.Tree, bool, error) {
	if !c.cfg.Enabled {
		tree, err := c.invokeParser(unit)
		return tree, false, err
	}

	key := cacheKey(unit.Path, unit.Fingerprint)

	if cached, found := c.mem.Get(key); found {
		c.hits.Add(1)
		return c.materialize(unit, cached.(*entry))
	}

	if e := c.loadPersistent(key); e != nil {
		c.mem.Set(key, e, gocache.DefaultExpiration)
		c.hits.Add(1)
		return c.materialize(unit, e)
	}

	tree, parseErr := c.invokeParser(unit)
	e := &entry{Tree: tree, StoredAt: time.Now().Unix()}
	if parseErr != nil {
		e.ParseErr = parseErr.Error()
	}

	c.mu.Lock()
	c.evictStale(unit.Path, unit.Fingerprint)
	c.mem.Set(key, e, gocache.DefaultExpiration)
	c.storePersistent(key, e)
	c.mu.Unlock()

	return tree, false, parseErr
}

func (c *Cache) materialize(unit *models.SourceUnit, e *entry) (*parser.Tree, bool, error) {
	if e.ParseErr != "" {
		return nil, true, errors.ParseError(unit.Path, stderrors.New(e.ParseErr))
	}
	return e.Tree, true, nil
}

func (c *Cache) invokeParser(unit *models.SourceUnit) (*parser.Tree, error) {
	c.parserCalls.Add(1)
	tree, err := c.parse(unit.Text)
	if err != nil {
		return nil, errors.ParseError(unit.Path, err)
	}
	return tree, nil
}

// evictStale removes entries for the same path with a different
// fingerprint. An entry is valid only while its fingerprint matches
// the current content, so older generations are simply dropped.
func (c *Cache) evictStale(path, keepFingerprint string) {
	prefix := path + "\x00"
	for key := range c.mem.Items() {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && key != cacheKey(path, keepFingerprint) {
			c.mem.Delete(key)
		}
	}

	if c.db == nil {
		return
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(treeBucket))
		if bucket == nil {
			return nil
		}
		cur := bucket.Cursor()
		var stale [][]byte
		for k, _ := cur.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, _ = cur.Next() {
			if string(k) != cacheKey(path, keepFingerprint) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Failed to evict stale cache entries")
	}
}

func (c *Cache) loadPersistent(key string) *entry {
	if c.db == nil {
		return nil
	}
	var e *entry
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(treeBucket))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		var decoded entry
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&decoded); err != nil {
			// Corrupt or stale-format entry; treat as absent.
			return nil
		}
		e = &decoded
		return nil
	})
	if err != nil {
		c.logger.WithError(err).Warn("Cache read failed")
		return nil
	}
	return e
}

func (c *Cache) storePersistent(key string, e *entry) {
	if c.db == nil {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		c.logger.WithError(err).Warn("Failed to encode cache entry")
		return
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(treeBucket)).Put([]byte(key), buf.Bytes())
	})
	if err != nil {
		c.logger.WithError(err).Warn("Cache write failed")
	}
}

// Prune drops persistent entries older than the configured TTL whose
// files no longer exist on disk. Correctness never depends on this;
// fingerprint mismatch already invalidates changed files.
func (c *Cache) Prune() (int, error) {
	if c.db == nil || c.cfg.TTL <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-c.cfg.TTL).Unix()
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(treeBucket))
		if bucket == nil {
			return nil
		}
		cur := bucket.Cursor()
		var stale [][]byte
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var e entry
			if gob.NewDecoder(bytes.NewReader(v)).Decode(&e) != nil {
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if e.StoredAt >= cutoff {
				continue
			}
			path, _, _ := bytes.Cut(k, []byte{0})
			if _, statErr := os.Stat(string(path)); os.IsNotExist(statErr) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// Stats describes cache occupancy for the cache subcommand
type Stats struct {
	Enabled     bool   `json:"enabled"`
	MemEntries  int    `json:"memory_entries"`
	DiskEntries int    `json:"disk_entries"`
	DiskBytes   int64  `json:"disk_size_bytes"`
	Directory   string `json:"cache_dir"`
}

// GetStats reports current cache occupancy
func (c *Cache) GetStats() Stats {
	stats := Stats{
		Enabled:    c.cfg.Enabled,
		MemEntries: c.mem.ItemCount(),
		Directory:  c.cfg.Directory,
	}
	if c.db != nil {
		c.db.View(func(tx *bolt.Tx) error {
			if bucket := tx.Bucket([]byte(treeBucket)); bucket != nil {
				stats.DiskEntries = bucket.Stats().KeyN
			}
			return nil
		})
		if info, err := os.Stat(filepath.Join(c.cfg.Directory, dbFileName)); err == nil {
			stats.DiskBytes = info.Size()
		}
	}
	return stats
}

// Clear removes every cached entry from memory and disk
func (c *Cache) Clear() error {
	c.mem.Flush()
	if c.db == nil {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(treeBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(treeBucket))
		return err
	})
}
