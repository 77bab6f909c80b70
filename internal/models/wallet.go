package models

import (
	"time"
)

// Wallet 演示钱包表
//
// 仅演示模式使用：下注时扣除本金，结算时返还赔付。
// 实盘模式的资金在链上流转，本表不参与。
type Wallet struct {
	BaseModel
	UserID   uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance  float64 `gorm:"default:0" json:"balance"` // 余额（美元）
	TotalBet float64 `gorm:"default:0" json:"total_bet"`
	TotalWin float64 `gorm:"default:0" json:"total_win"`
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction 钱包交易记录表
type WalletTransaction struct {
	BaseModel
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	OrderNo       string     `gorm:"uniqueIndex;size:64;not null" json:"order_no"`
	Type          string     `gorm:"size:50;not null;index" json:"type"` // bet, win, refund
	Amount        float64    `gorm:"not null" json:"amount"`
	BeforeBalance float64    `json:"before_balance"`
	AfterBalance  float64    `json:"after_balance"`
	Status        string     `gorm:"size:20;default:'success';index" json:"status"`
	RefID         string     `gorm:"size:100;index" json:"ref_id"` // 关联投注ID
	RefType       string     `gorm:"size:50" json:"ref_type"`
	Description   string     `gorm:"size:500" json:"description"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
