package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/genricoloni/volt/internal/domain"
	"github.com/glebarez/sqlite"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DefaultFileName is the database file created inside the data directory
const DefaultFileName = "volt.db"

// entryModel is one durable key/value pair
type entryModel struct {
	Name      string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (entryModel) TableName() string {
	return "kv_entries"
}

// SQLiteStore is a KVStore on SQLite that also notices writes made by other processes
type SQLiteStore struct {
	db      *gorm.DB
	path    string
	logger  *zap.Logger
	changes chan struct{}

	mu          sync.Mutex
	dataVersion int64
	watcher     *fsnotify.Watcher
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, log *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(log, logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := db.AutoMigrate(&entryModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// data_version is per connection, so every query must go through the same one
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:      db,
		path:    path,
		logger:  log,
		changes: make(chan struct{}, 1),
	}
	s.dataVersion, _ = s.readDataVersion(context.Background())
	return s, nil
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored value or domain.ErrKeyNotFound
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var m entryModel
	err := s.db.WithContext(ctx).Where("name = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %v", domain.ErrPersistence, key, err)
	}
	return m.Value, nil
}

// Set inserts or replaces a value
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	m := entryModel{Name: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrPersistence, key, err)
	}
	return nil
}

// Delete removes the given keys; missing keys are ignored
func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("name IN ?", keys).Delete(&entryModel{}).Error; err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Changes signals writes committed by other processes.
// Signals coalesce: one pending notification stands for any number of writes.
func (s *SQLiteStore) Changes() <-chan struct{} {
	return s.changes
}

// Start watches the database directory for external commits
func (s *SQLiteStore) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watch(w, s.done)

	s.logger.Info("Watching storage for external changes", zap.String("path", s.path))
	return nil
}

func (s *SQLiteStore) watch(w *fsnotify.Watcher, done chan struct{}) {
	defer s.wg.Done()
	base := filepath.Base(s.path)

	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.checkExternalChange()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Storage watcher error", zap.Error(err))
		}
	}
}

// checkExternalChange compares data_version, which only moves for commits from other connections
func (s *SQLiteStore) checkExternalChange() {
	v, err := s.readDataVersion(context.Background())
	if err != nil {
		s.logger.Debug("Failed to read data_version", zap.Error(err))
		return
	}

	s.mu.Lock()
	changed := v != s.dataVersion
	s.dataVersion = v
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *SQLiteStore) readDataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.WithContext(ctx).Raw("PRAGMA data_version").Scan(&v).Error; err != nil {
		return 0, err
	}
	return v, nil
}

// Close stops the watcher and closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	w := s.watcher
	done := s.done
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		close(done)
		err = multierr.Append(err, w.Close())
		s.wg.Wait()
	}

	sqlDB, dbErr := s.db.DB()
	if dbErr != nil {
		return multierr.Append(err, dbErr)
	}
	return multierr.Append(err, sqlDB.Close())
}
