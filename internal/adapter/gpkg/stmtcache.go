package gpkg

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// stmtCache is a thread-safe LRU cache of prepared single-value lookup
// statements, keyed by table and field. Field-major extraction re-reads the
// same (table, field) pair for every chunk, so the hot set is the declared
// mapping and stays small; the cap only matters for pathological mappings.
type stmtCache struct {
	db         *sql.DB
	maxEntries int

	mu      sync.Mutex
	entries map[string]*stmtEntry
	head    *stmtEntry // most recently used
	tail    *stmtEntry // least recently used
}

type stmtEntry struct {
	key  string
	stmt *sql.Stmt
	prev *stmtEntry
	next *stmtEntry
}

func newStmtCache(db *sql.DB, maxEntries int) *stmtCache {
	return &stmtCache{
		db:         db,
		maxEntries: maxEntries,
		entries:    make(map[string]*stmtEntry),
	}
}

// get returns the prepared lookup statement for one (table, field) pair,
// preparing and caching it on first use. Callers must have validated both
// identifiers.
func (c *stmtCache) get(ctx context.Context, table, field string) (*sql.Stmt, error) {
	key := table + "|" + field

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		c.mu.Unlock()
		return e.stmt, nil
	}
	c.mu.Unlock()

	stmt, err := c.db.PrepareContext(ctx,
		fmt.Sprintf(`SELECT %q FROM %q WHERE %q = ?`, field, table, joinColumn))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another reader may have prepared the same statement concurrently.
	if e, ok := c.entries[key]; ok {
		go stmt.Close() //nolint:errcheck
		c.moveToFront(e)
		return e.stmt, nil
	}

	e := &stmtEntry{key: key, stmt: stmt}
	c.entries[key] = e
	c.addToFront(e)
	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return stmt, nil
}

func (c *stmtCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.stmt.Close() //nolint:errcheck
	}
	c.entries = make(map[string]*stmtEntry)
	c.head, c.tail = nil, nil
}

func (c *stmtCache) moveToFront(e *stmtEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *stmtCache) addToFront(e *stmtEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *stmtCache) remove(e *stmtEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *stmtCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.tail.stmt.Close() //nolint:errcheck
	c.remove(c.tail)
}
