package models

import (
	"time"
)

// BetDirection 投注方向
type BetDirection string

const (
	DirectionUp   BetDirection = "UP"   // 看涨
	DirectionDown BetDirection = "DOWN" // 看跌
)

// BetStatus 投注状态
type BetStatus string

const (
	BetPending   BetStatus = "PENDING"   // 已创建，等待开仓
	BetActive    BetStatus = "ACTIVE"    // 持仓中
	BetWon       BetStatus = "WON"       // 已结算，盈利
	BetLost      BetStatus = "LOST"      // 已结算，亏损
	BetCancelled BetStatus = "CANCELLED" // 已取消
)

// IsTerminal 判断状态是否为终态
func (s BetStatus) IsTerminal() bool {
	return s == BetWon || s == BetLost || s == BetCancelled
}

// BetMode 投注模式
type BetMode string

const (
	ModeDemo BetMode = "demo" // 演示模式，本地虚拟余额结算
	ModeLive BetMode = "live" // 实盘模式，真实市场仓位结算
)

// Bet 投注记录表
type Bet struct {
	BaseModel
	BetID           string       `gorm:"uniqueIndex;size:64;not null" json:"bet_id"` // 业务ID（UUID）
	UserID          uint         `gorm:"index;not null" json:"user_id"`
	Amount          float64      `gorm:"not null" json:"amount"` // 本金（美元）
	Direction       BetDirection `gorm:"size:10;not null" json:"direction"`
	Status          BetStatus    `gorm:"size:20;not null;index" json:"status"`
	Mode            BetMode      `gorm:"size:10;not null;default:'demo'" json:"mode"`
	MarketID        string       `gorm:"size:100" json:"market_id"`
	OrderID         string       `gorm:"size:100" json:"order_id"` // 市场侧订单ID
	HoldTimeSeconds int          `gorm:"not null" json:"hold_time_seconds"`
	EntryPrice      float64      `json:"entry_price,omitempty"`
	ExitPrice       float64      `json:"exit_price,omitempty"`
	Payout          float64      `json:"payout,omitempty"` // 平仓回收金额（含本金）
	PlacedAt        time.Time    `json:"placed_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
}

// TableName 指定表名
func (Bet) TableName() string {
	return "bets"
}

// Profit 返回已结算投注的净盈亏
func (b *Bet) Profit() float64 {
	return b.Payout - b.Amount
}

// IsResolved 判断投注是否已结算
func (b *Bet) IsResolved() bool {
	return b.Status.IsTerminal()
}
