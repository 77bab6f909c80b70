package repository

import (
	"context"
	"time"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"gorm.io/gorm"
)

// SpinRecordRepository 旋转记录仓储接口
type SpinRecordRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.SpinRecord) error
	FindByUserID(ctx context.Context, userID uint, pagination *Pagination) ([]*models.SpinRecord, error)
	FindByBetID(ctx context.Context, betID string) (*models.SpinRecord, error)
}

// spinRecordRepo 旋转记录仓储实现
type spinRecordRepo struct {
	*BaseRepo
}

// NewSpinRecordRepository 创建旋转记录仓储
func NewSpinRecordRepository(db *gorm.DB) SpinRecordRepository {
	return &spinRecordRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建旋转记录
func (r *spinRecordRepo) Create(ctx context.Context, record *models.SpinRecord) error {
	if record.PlayedAt.IsZero() {
		record.PlayedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByUserID 获取用户旋转历史
func (r *spinRecordRepo) FindByUserID(ctx context.Context, userID uint, pagination *Pagination) ([]*models.SpinRecord, error) {
	var records []*models.SpinRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("played_at DESC").
		Scopes(Paginate(pagination)).
		Find(&records).Error
	return records, err
}

// FindByBetID 根据投注ID查找旋转记录
func (r *spinRecordRepo) FindByBetID(ctx context.Context, betID string) (*models.SpinRecord, error) {
	var record models.SpinRecord
	err := r.db.WithContext(ctx).Where("bet_id = ?", betID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
