package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"gorm.io/gorm"
)

// ErrInsufficientBalance 余额不足
var ErrInsufficientBalance = errors.New("Insufficient balance")

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	BaseRepository
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	EnsureWallet(ctx context.Context, userID uint, initialBalance float64) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (float64, error)
	HasSufficientBalance(ctx context.Context, userID uint, amount float64) (bool, error)
	Deduct(ctx context.Context, userID uint, amount float64) error
	Add(ctx context.Context, userID uint, amount float64) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	GetTransactions(ctx context.Context, userID uint, pagination *Pagination) ([]*models.WalletTransaction, error)
}

// walletRepo 钱包仓储实现
type walletRepo struct {
	*BaseRepo
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// GetByUserID 获取用户钱包
func (r *walletRepo) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("钱包不存在: user_id=%d", userID)
		}
		return nil, err
	}
	return &wallet, nil
}

// EnsureWallet 获取用户钱包，不存在则以初始余额创建
func (r *walletRepo) EnsureWallet(ctx context.Context, userID uint, initialBalance float64) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{
		UserID:  userID,
		Balance: initialBalance,
	}
	if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetBalance 获取余额
func (r *walletRepo) GetBalance(ctx context.Context, userID uint) (float64, error) {
	wallet, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// HasSufficientBalance 检查余额是否足够
func (r *walletRepo) HasSufficientBalance(ctx context.Context, userID uint, amount float64) (bool, error) {
	balance, err := r.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Deduct 扣除余额（余额不足时拒绝）
func (r *walletRepo) Deduct(ctx context.Context, userID uint, amount float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":   gorm.Expr("balance - ?", amount),
			"total_bet": gorm.Expr("total_bet + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// Add 增加余额
func (r *walletRepo) Add(ctx context.Context, userID uint, amount float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":   gorm.Expr("balance + ?", amount),
			"total_win": gorm.Expr("total_win + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("钱包不存在: user_id=%d", userID)
	}
	return nil
}

// CreateTransaction 创建交易记录
func (r *walletRepo) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ProcessedAt == nil {
		now := time.Now()
		txn.ProcessedAt = &now
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// GetTransactions 获取交易记录
func (r *walletRepo) GetTransactions(ctx context.Context, userID uint, pagination *Pagination) ([]*models.WalletTransaction, error) {
	var txns []*models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scopes(Paginate(pagination)).
		Find(&txns).Error
	return txns, err
}
