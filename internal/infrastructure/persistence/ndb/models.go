// Package ndb provides the GORM-backed implementation of
// outbound.NDBReader: a read-only nutrition database adapter over
// Postgres or SQLite (spec.md §4.2), LRU-cached in front of the
// underlying driver.
package ndb

import (
	"encoding/json"

	"gorm.io/gorm"
)

// EntryModel is the GORM row for one NDB food entry (Foundation, SR
// Legacy, or Branded partition, distinguished by Source).
type EntryModel struct {
	FdcID      int64  `gorm:"column:fdc_id;primaryKey"`
	Name       string `gorm:"type:varchar(512);index"`
	Source     string `gorm:"type:varchar(20);index"` // foundation | legacy | branded
	Form       string `gorm:"type:varchar(20)"`        // raw | cooked | unknown
	EnergyKcal float64
	ProteinG   float64
	CarbG      float64
	FatG       float64
	MicrosJSON JSONMap `gorm:"column:micros;type:json"`
}

func (EntryModel) TableName() string { return "ndb_entries" }

// JSONMap stores an arbitrary nutrient-name -> amount map, mirroring
// internal/infrastructure/persistence/gorm's JSONField Scan/Value
// pattern for portability across Postgres and SQLite.
type JSONMap map[string]float64

func (m JSONMap) GormDataType() string { return "json" }

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = JSONMap{}
		return nil
	}
	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func (m JSONMap) Value() (interface{}, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AutoMigrate creates/updates the ndb_entries table. The NDB is
// read-only from the application's perspective (spec.md §4.2); this
// exists only for test fixtures and local SQLite snapshots, not for a
// production write path.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EntryModel{})
}
