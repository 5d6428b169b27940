// Package sqlstore implements store.Store on one GORM table, so the same data
// model can live in PostgreSQL or SQLite.
//
// On PostgreSQL, Transact takes a transaction-scoped advisory lock per
// watched path, in sorted order, before reading. Row locks alone cannot guard
// a path that has no row yet, so two transactions watching an overlapping
// set of paths run one after the other and the second reads what the first
// committed. SQLite serializes writers on its single connection. In both
// dialects an absent path is created with a plain INSERT, and a duplicate key
// retries the whole read-modify-write.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"arcade/internal/observability"
	"arcade/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one stored path.
type Entry struct {
	Path      string `gorm:"primaryKey;size:512"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name independent of naming strategy.
func (Entry) TableName() string { return "kv_entries" }

// Store is a GORM-backed store.Store.
type Store struct {
	db       *gorm.DB
	retry    store.RetryConfig
	metrics  *observability.StoreMetrics
	pgLocks  bool
	ownsConn bool
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetry sets the optimistic retry bounds.
func WithRetry(cfg store.RetryConfig) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithOwnedConnection makes Close also close the underlying sql.DB.
func WithOwnedConnection() Option {
	return func(s *Store) { s.ownsConn = true }
}

// New wraps db. The backend label follows the dialect name.
func New(db *gorm.DB, opts ...Option) *Store {
	name := db.Dialector.Name()
	s := &Store{
		db:       db,
		retry:    store.DefaultRetryConfig(),
		metrics:  observability.NewStoreMetrics(name),
		pgLocks:  name == "postgres",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the entries table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, path string) (_ []byte, err error) {
	ctx, end := store.Instrument(ctx, s.metrics, "get")
	defer func() { end(err) }()

	var e Entry
	err = s.db.WithContext(ctx).Where("path = ?", path).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

// lockPaths takes pg_advisory_xact_lock on each distinct path in sorted
// order. The locks are released at commit or rollback.
func lockPaths(tx *gorm.DB, paths []string) error {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	for _, p := range slices.Compact(sorted) {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", p).Error; err != nil {
			return fmt.Errorf("lock %q: %w", p, err)
		}
	}
	return nil
}

func readRows(tx *gorm.DB, paths []string, lock bool) (map[string][]byte, error) {
	out := make(map[string][]byte, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	q := tx.Where("path IN ?", paths)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []Entry
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Path] = r.Value
	}
	return out, nil
}

// GetMany implements store.Store.
func (s *Store) GetMany(ctx context.Context, paths []string) (_ map[string][]byte, err error) {
	ctx, end := store.Instrument(ctx, s.metrics, "get_many")
	defer func() { end(err) }()
	return readRows(s.db.WithContext(ctx), paths, false)
}

// apply writes w inside tx. Paths listed in create are known to be absent
// and are inserted without an upsert so a concurrent creator surfaces as a
// duplicate key.
func (s *Store) apply(tx *gorm.DB, w store.Writes, create map[string]bool) error {
	now := s.now()
	var deletes []string
	var inserts, upserts []Entry
	for _, p := range w.Paths() {
		v := w[p]
		switch {
		case v == nil:
			deletes = append(deletes, p)
		case create[p]:
			inserts = append(inserts, Entry{Path: p, Value: v, UpdatedAt: now})
		default:
			upserts = append(upserts, Entry{Path: p, Value: v, UpdatedAt: now})
		}
	}

	if len(deletes) > 0 {
		if err := tx.Where("path IN ?", deletes).Delete(&Entry{}).Error; err != nil {
			return err
		}
	}
	if len(inserts) > 0 {
		if err := tx.Create(&inserts).Error; err != nil {
			return err
		}
	}
	if len(upserts) > 0 {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&upserts).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, writes store.Writes) (err error) {
	ctx, end := store.Instrument(ctx, s.metrics, "update")
	defer func() { end(err) }()
	if len(writes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.pgLocks {
			if err := lockPaths(tx, writes.Paths()); err != nil {
				return err
			}
		}
		return s.apply(tx, writes, nil)
	})
}

// Transact implements store.Store.
func (s *Store) Transact(ctx context.Context, paths []string, fn store.TxFunc) (err error) {
	ctx, end := store.Instrument(ctx, s.metrics, "transact")
	defer func() { end(err) }()

	return store.RunOptimistic(ctx, s.retry, s.metrics.Backend(), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if s.pgLocks {
				if err := lockPaths(tx, paths); err != nil {
					return err
				}
			}
			current, err := readRows(tx, paths, s.pgLocks)
			if err != nil {
				return err
			}
			writes, err := fn(current)
			if err != nil {
				return err
			}
			absent := make(map[string]bool, len(paths))
			for _, p := range paths {
				if _, ok := current[p]; !ok {
					absent[p] = true
				}
			}
			return s.apply(tx, writes, absent)
		})
	}, func(err error) bool {
		return errors.Is(err, gorm.ErrDuplicatedKey)
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Scan implements store.Store.
func (s *Store) Scan(ctx context.Context, prefix string) (_ map[string][]byte, err error) {
	ctx, end := store.Instrument(ctx, s.metrics, "scan")
	defer func() { end(err) }()

	var rows []Entry
	err = s.db.WithContext(ctx).
		Where(`path LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	out := make(map[string][]byte, len(rows))
	for _, r := range rows {
		out[r.Path] = r.Value
	}
	return out, nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	if !s.ownsConn {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
