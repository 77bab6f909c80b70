package models

import (
	"time"
)

// SpinRecord 旋转结果记录表
//
// 每次投注结算后写入一条，保存展示用的符号网格快照。
type SpinRecord struct {
	BaseModel
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	BetID       string    `gorm:"index;size:64;not null" json:"bet_id"`
	IsWin       bool      `json:"is_win"`
	WinAmount   float64   `json:"win_amount"`
	TotalPayout float64   `json:"total_payout"`
	Multiplier  float64   `json:"multiplier"`
	Grid        JSONMap   `gorm:"type:json" json:"grid"`     // 7×7符号网格
	Clusters    JSONMap   `gorm:"type:json" json:"clusters"` // 展示用中奖簇
	PlayedAt    time.Time `json:"played_at"`
}

// TableName 指定表名
func (SpinRecord) TableName() string {
	return "spin_records"
}
