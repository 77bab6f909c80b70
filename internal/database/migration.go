package database

import (
	"fmt"

	"github.com/isnotcursed/polymarket-casino-slot/internal/logger"
	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	migrations := []interface{}{
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Bet{},
		&models.SpinRecord{},
	}

	for _, model := range migrations {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("迁移表结构失败 %T: %w", model, err)
		}
	}

	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成", zap.Int("tables", len(migrations)))
	return nil
}

// createIndexes 创建附加索引
func createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bets_user_status ON bets(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_spin_records_user_played ON spin_records(user_id, played_at)",
		"CREATE INDEX IF NOT EXISTS idx_wallet_tx_user_created ON wallet_transactions(user_id, created_at)",
	}

	for _, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("sql", stmt), zap.Error(err))
		}
	}

	return nil
}
