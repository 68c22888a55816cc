package implementation

import (
	"context"

	"visuallm-be/internal/model"
	"visuallm-be/internal/repository"

	"gorm.io/gorm"
)

type TraceRepositoryImpl struct {
	db *gorm.DB
}

func NewTraceRepository(db *gorm.DB) repository.TraceRepository {
	return &TraceRepositoryImpl{db: db}
}

func (r *TraceRepositoryImpl) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&model.InteractionTrace{})
}

func (r *TraceRepositoryImpl) Create(ctx context.Context, trace *model.InteractionTrace) error {
	return r.db.WithContext(ctx).Create(trace).Error
}

func (r *TraceRepositoryImpl) List(ctx context.Context, component string, limit int) ([]model.InteractionTrace, error) {
	var traces []model.InteractionTrace
	db := r.db.WithContext(ctx).Model(&model.InteractionTrace{})
	if component != "" {
		db = db.Where("component = ?", component)
	}
	err := db.Order("created_at DESC").
		Limit(limit).
		Find(&traces).Error
	return traces, err
}
