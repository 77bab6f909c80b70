package repository

import (
	"context"
	"errors"
	"time"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"gorm.io/gorm"
)

// ErrBetNotFound 投注记录不存在
var ErrBetNotFound = errors.New("Bet not found")

// BetRepository 投注仓储接口
type BetRepository interface {
	BaseRepository
	Save(ctx context.Context, bet *models.Bet) error
	Update(ctx context.Context, bet *models.Bet) error
	GetByID(ctx context.Context, betID string) (*models.Bet, error)
	GetActive(ctx context.Context, userID uint) ([]*models.Bet, error)
	GetHistory(ctx context.Context, userID uint, limit, offset int) ([]*models.Bet, error)
	Count(ctx context.Context, userID uint) (int64, error)
	GetWinRate(ctx context.Context, userID uint) (float64, error)
}

// betRepo 投注仓储实现
type betRepo struct {
	*BaseRepo
}

// NewBetRepository 创建投注仓储
func NewBetRepository(db *gorm.DB) BetRepository {
	return &betRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Save 保存投注
func (r *betRepo) Save(ctx context.Context, bet *models.Bet) error {
	if bet.PlacedAt.IsZero() {
		bet.PlacedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(bet).Error
}

// Update 更新投注
func (r *betRepo) Update(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Save(bet).Error
}

// GetByID 根据业务ID查找投注
func (r *betRepo) GetByID(ctx context.Context, betID string) (*models.Bet, error) {
	var bet models.Bet
	err := r.db.WithContext(ctx).Where("bet_id = ?", betID).First(&bet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBetNotFound
		}
		return nil, err
	}
	return &bet, nil
}

// GetActive 获取用户当前活跃的投注
func (r *betRepo) GetActive(ctx context.Context, userID uint) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []models.BetStatus{models.BetPending, models.BetActive}).
		Order("placed_at DESC").
		Find(&bets).Error
	return bets, err
}

// GetHistory 获取用户投注历史（按时间倒序）
func (r *betRepo) GetHistory(ctx context.Context, userID uint, limit, offset int) ([]*models.Bet, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var bets []*models.Bet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("placed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bets).Error
	return bets, err
}

// Count 统计用户投注总数
func (r *betRepo) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetWinRate 计算用户胜率（已结算投注中WON的占比）
func (r *betRepo) GetWinRate(ctx context.Context, userID uint) (float64, error) {
	var resolved, won int64

	err := r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("user_id = ? AND status IN ?", userID, []models.BetStatus{models.BetWon, models.BetLost}).
		Count(&resolved).Error
	if err != nil {
		return 0, err
	}
	if resolved == 0 {
		return 0, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.Bet{}).
		Where("user_id = ? AND status = ?", userID, models.BetWon).
		Count(&won).Error
	if err != nil {
		return 0, err
	}

	return float64(won) / float64(resolved), nil
}
