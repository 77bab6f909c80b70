package slot

import (
	"fmt"
	"time"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

// Resolution 已结算投注的财务结果
//
// Payout 是市场层平仓回收的权威金额（含本金），本层只消费不质疑。
type Resolution struct {
	Payout float64     `json:"payout"`
	Bet    *models.Bet `json:"bet"`
}

// TargetProfit 返回网格需要视觉呈现的净盈利
func (r *Resolution) TargetProfit() float64 {
	if r.Bet == nil {
		return 0
	}
	profit := r.Payout - r.Bet.Amount
	if profit < 0 {
		return 0
	}
	return profit
}

// SpinResult 旋转结果
//
// WinAmount 与 TotalPayout 恒等于真实财务结果；
// Clusters 是经过缩放的展示数据，其坐标必须与 Symbols 网格中的实际连通区域一致。
type SpinResult struct {
	Symbols     Grid        `json:"symbols"`
	IsWin       bool        `json:"is_win"`
	WinAmount   float64     `json:"win_amount"`
	TotalPayout float64     `json:"total_payout"`
	Multiplier  float64     `json:"multiplier"`
	Bet         *models.Bet `json:"bet"`
	Clusters    []Cluster   `json:"clusters"`
	Timestamp   time.Time   `json:"timestamp"`
}

// GetWinDescription 获取展示用的输赢描述
func (s *SpinResult) GetWinDescription() string {
	if s.IsWin {
		return fmt.Sprintf("You won $%.2f!", s.WinAmount)
	}
	return "Better luck next time!"
}
