package batch

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultName is the batch created when the store is empty.
const DefaultName = "Default"

// Batch is the GORM model for a named selection of content roots.
type Batch struct {
	ID            string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name          string    `gorm:"column:name;uniqueIndex:idx_batch_name;not null"`
	Selection     RootSet   `gorm:"column:selection;not null"`
	StopOnFailure bool      `gorm:"column:stop_on_failure;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Batch) TableName() string { return "batches" }

// RootSet is a set of content root ids stored as a sorted JSON array.
type RootSet struct {
	set mapset.Set[string]
}

// NewRootSet returns a set holding ids.
func NewRootSet(ids ...string) RootSet {
	return RootSet{set: mapset.NewThreadUnsafeSet(ids...)}
}

// IDs returns the ids in sorted order.
func (s RootSet) IDs() []string {
	if s.set == nil {
		return []string{}
	}
	ids := s.set.ToSlice()
	sort.Strings(ids)
	return ids
}

// Contains reports whether id is selected.
func (s RootSet) Contains(id string) bool {
	return s.set != nil && s.set.Contains(id)
}

// Len returns the number of selected roots.
func (s RootSet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Cardinality()
}

// GormDataType stores the set in a text column.
func (RootSet) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (s RootSet) Value() (driver.Value, error) {
	data, err := json.Marshal(s.IDs())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (s *RootSet) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = NewRootSet()
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scanning root set: unsupported type %T", src)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("scanning root set: %w", err)
	}
	*s = NewRootSet(ids...)
	return nil
}
