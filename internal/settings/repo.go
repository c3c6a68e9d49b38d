package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
)

// Repository reads and writes global_settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetAll(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []models.GlobalSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *repository) Upsert(ctx context.Context, key, value string) error {
	setting := models.GlobalSetting{Key: key, Value: value}
	return r.db.WithContext(ctx).Save(&setting).Error
}
