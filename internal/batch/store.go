// Package batch persists named, reusable selections of content roots.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FileName is the batch database file inside the project state directory.
const FileName = "batches.db"

var (
	ErrNotFound    = errors.New("batch not found")
	ErrNameTaken   = errors.New("batch name already exists")
	ErrInvalidName = errors.New("batch name must not be empty")
	ErrLastBatch   = errors.New("cannot delete the last remaining batch")
)

// Store provides database operations for batches. At least one batch always
// exists.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the SQLite batch database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating batch directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening batch store %s: %w", path, err)
	}
	return NewStore(db)
}

// NewStore migrates db and ensures the default batch exists.
func NewStore(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := db.AutoMigrate(&Batch{}); err != nil {
		return nil, fmt.Errorf("migrating batch store: %w", err)
	}
	if err := s.ensureDefault(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureDefault() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Batch{}).Count(&n).Error; err != nil {
			return fmt.Errorf("counting batches: %w", err)
		}
		if n > 0 {
			return nil
		}
		b := newBatch(DefaultName)
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("creating default batch: %w", err)
		}
		return nil
	})
}

func newBatch(name string) *Batch {
	return &Batch{ID: uuid.New().String(), Name: name, Selection: NewRootSet()}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create adds an empty batch.
func (s *Store) Create(name string) (*Batch, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	b := newBatch(name)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if taken, err := nameTaken(tx, name); err != nil {
			return err
		} else if taken {
			return fmt.Errorf("%s: %w", name, ErrNameTaken)
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

func nameTaken(tx *gorm.DB, name string) (bool, error) {
	var n int64
	if err := tx.Model(&Batch{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the batch with the given name.
func (s *Store) Get(name string) (*Batch, error) {
	var b Batch
	err := s.db.Where("name = ?", name).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// List returns every batch ordered by name.
func (s *Store) List() ([]Batch, error) {
	var batches []Batch
	if err := s.db.Order("name ASC").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// Rename changes a batch's name.
func (s *Store) Rename(oldName, newName string) error {
	newName, err := normalizeName(newName)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.getTx(tx, oldName)
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if taken, err := nameTaken(tx, newName); err != nil {
			return fmt.Errorf("rename batch: %w", err)
		} else if taken {
			return fmt.Errorf("%s: %w", newName, ErrNameTaken)
		}
		return tx.Model(b).Update("name", newName).Error
	})
}

// Delete removes a batch. The last remaining batch cannot be deleted.
func (s *Store) Delete(name string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.getTx(tx, name)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&Batch{}).Count(&n).Error; err != nil {
			return fmt.Errorf("counting batches: %w", err)
		}
		if n <= 1 {
			return ErrLastBatch
		}
		return tx.Delete(b).Error
	})
}

// SetSelection replaces the selected content root ids.
func (s *Store) SetSelection(name string, ids []string) error {
	return s.update(name, "selection", NewRootSet(ids...))
}

// SetStopOnFailure sets the batch's failure policy.
func (s *Store) SetStopOnFailure(name string, stop bool) error {
	return s.update(name, "stop_on_failure", stop)
}

func (s *Store) update(name, column string, value any) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		b, err := s.getTx(tx, name)
		if err != nil {
			return err
		}
		return tx.Model(b).Update(column, value).Error
	})
}

func (s *Store) getTx(tx *gorm.DB, name string) (*Batch, error) {
	var b Batch
	err := tx.Where("name = ?", name).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
