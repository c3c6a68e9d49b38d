package models

import "time"

// GlobalSetting is a key-value row backing pricing policy lookups such as the
// tax rate and per-method fee percentages.
type GlobalSetting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
