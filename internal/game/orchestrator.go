package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/logger"
	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// GameState 游戏状态枚举
type GameState string

const (
	StateIdle          GameState = "idle"           // 待机
	StatePlacingBet    GameState = "placing-bet"    // 下注开仓中
	StateSpinning      GameState = "spinning"       // 转轮动画中
	StateWaiting       GameState = "waiting"        // 持仓等待中
	StateResolving     GameState = "resolving"      // 平仓结算中
	StateShowingResult GameState = "showing-result" // 展示结果
)

// ErrGameInProgress 已有进行中的旋转
var ErrGameInProgress = errors.New("Game already in progress")

// StateChange 状态变更推送
type StateChange struct {
	State         GameState `json:"state"`
	Message       string    `json:"message,omitempty"`
	TimeRemaining int       `json:"time_remaining,omitempty"` // waiting 倒计时（秒）
	BetID         string    `json:"bet_id,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
}

// StateListener 状态变更回调
type StateListener func(change StateChange)

// SpinOptions 旋转参数
type SpinOptions struct {
	Amount          float64        `json:"amount"`
	Direction       string         `json:"direction"` // up / down / random
	Mode            models.BetMode `json:"mode"`
	HoldTimeSeconds int            `json:"hold_time_seconds"`
}

// Config 编排器配置
type Config struct {
	SpinAnimationDelay time.Duration // 转轮动画时长
	MinHoldSeconds     int           // 最短持仓时间
	MaxHoldSeconds     int           // 最长持仓时间
	DefaultHoldSeconds int           // 未指定时的持仓时间
}

// Orchestrator 单用户旋转编排器
//
// 一次旋转按 idle → placing-bet → spinning → waiting → resolving →
// showing-result → idle 推进。整个流程内状态机被该次运行独占，
// 其间新的 Spin 请求一律拒绝。
//
// 取消经由每次运行独立的 context 完成：Cancel 只在 waiting 阶段
// 有效，效果是提前平仓而非作废投注。
type Orchestrator struct {
	mu           sync.Mutex
	state        GameState
	runID        string
	currentBetID string
	cancelWait   context.CancelFunc

	config    *Config
	bets      *bet.Service
	machine   *slot.SlotMachineService
	spinRepo  repository.SpinRecordRepository
	randomGen slot.RandomGenerator
	logger    *zap.Logger

	listenerMu sync.RWMutex
	listeners  []StateListener
}

// NewOrchestrator 创建旋转编排器
func NewOrchestrator(
	config *Config,
	bets *bet.Service,
	machine *slot.SlotMachineService,
	spinRepo repository.SpinRecordRepository,
	randomGen slot.RandomGenerator,
	logger *zap.Logger,
) *Orchestrator {
	if config == nil {
		config = &Config{
			SpinAnimationDelay: 2 * time.Second,
			MinHoldSeconds:     5,
			MaxHoldSeconds:     300,
			DefaultHoldSeconds: 30,
		}
	}
	if randomGen == nil {
		randomGen = slot.NewRandomGenerator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		state:     StateIdle,
		config:    config,
		bets:      bets,
		machine:   machine,
		spinRepo:  spinRepo,
		randomGen: randomGen,
		logger:    logger,
	}
}

// State 返回当前状态
func (o *Orchestrator) State() GameState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CurrentBetID 返回进行中旋转的投注ID，空串表示无
func (o *Orchestrator) CurrentBetID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentBetID
}

// OnStateChange 注册状态变更回调
func (o *Orchestrator) OnStateChange(listener StateListener) {
	o.listenerMu.Lock()
	defer o.listenerMu.Unlock()
	o.listeners = append(o.listeners, listener)
}

// Spin 执行一次完整旋转，阻塞直到结果产生
//
// 状态机非待机时返回 ErrGameInProgress。任何阶段失败都会把
// 状态机恢复到待机，已开仓的投注会先行结算或取消。
func (o *Orchestrator) Spin(ctx context.Context, userID uint, opts *SpinOptions) (*slot.SpinResult, error) {
	runID, err := o.begin()
	if err != nil {
		return nil, err
	}

	result, err := o.run(ctx, userID, opts, runID)

	o.finish(runID, err)
	return result, err
}

// Cancel 请求提前结算
//
// 仅 waiting 阶段有效：中断倒计时，立即进入结算。其余阶段
// 调用无效果并返回 false。
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateWaiting || o.cancelWait == nil {
		return false
	}

	o.logger.Info("收到提前结算请求",
		zap.String("run_id", o.runID),
		zap.String("bet_id", o.currentBetID))
	o.cancelWait()
	o.cancelWait = nil
	return true
}

// begin 占用状态机，分配运行ID
func (o *Orchestrator) begin() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return "", ErrGameInProgress
	}

	runID := uuid.New().String()
	o.runID = runID
	o.state = StatePlacingBet
	return runID, nil
}

// finish 释放状态机回到待机，失败时把错误文案带给订阅方
func (o *Orchestrator) finish(runID string, runErr error) {
	o.mu.Lock()
	if o.runID != runID {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.runID = ""
	o.currentBetID = ""
	o.cancelWait = nil
	o.mu.Unlock()

	change := StateChange{State: StateIdle}
	if runErr != nil {
		change.Message = runErr.Error()
	}
	o.emit(change)
}

// run 推进一次旋转的全部阶段
func (o *Orchestrator) run(ctx context.Context, userID uint, opts *SpinOptions, runID string) (*slot.SpinResult, error) {
	if opts == nil {
		return nil, fmt.Errorf("缺少旋转参数")
	}

	direction, err := o.resolveDirection(opts.Direction)
	if err != nil {
		return nil, err
	}
	holdSeconds := o.clampHoldSeconds(opts.HoldTimeSeconds)
	mode := opts.Mode
	if mode == "" {
		mode = models.ModeDemo
	}

	// 阶段1：下注开仓
	o.emit(StateChange{State: StatePlacingBet, Message: "Placing bet...", RunID: runID})

	placed, err := o.bets.PlaceBet(ctx, &bet.PlaceRequest{
		UserID:          userID,
		Amount:          opts.Amount,
		Direction:       direction,
		Mode:            mode,
		HoldTimeSeconds: holdSeconds,
	})
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.currentBetID = placed.BetID
	o.mu.Unlock()

	// 阶段2：转轮动画
	o.emit(StateChange{State: StateSpinning, Message: "Spinning...", BetID: placed.BetID, RunID: runID})
	if err := sleepCtx(ctx, o.config.SpinAnimationDelay); err != nil {
		o.abandonBet(placed.BetID)
		return nil, err
	}

	// 阶段3：持仓等待，逐秒倒计时；提前结算请求会中断等待
	if err := o.waitHoldTime(ctx, placed.BetID, runID, holdSeconds); err != nil {
		o.abandonBet(placed.BetID)
		return nil, err
	}

	// 阶段4：平仓结算
	o.emit(StateChange{State: StateResolving, Message: "Resolving position...", BetID: placed.BetID, RunID: runID})

	resolution, err := o.bets.ResolveBet(ctx, placed.BetID)
	if err != nil {
		return nil, err
	}

	result, err := o.machine.GenerateSpinResult(&slot.Resolution{
		Payout: resolution.Payout,
		Bet:    resolution.Bet,
	})
	if err != nil {
		return nil, err
	}

	o.saveSpinRecord(ctx, userID, result)

	logger.LogSpinEvent("spin_resolved", placed.BetID, map[string]interface{}{
		"is_win":       result.IsWin,
		"win_amount":   result.WinAmount,
		"total_payout": result.TotalPayout,
		"multiplier":   result.Multiplier,
	})

	// 阶段5：展示结果
	o.emit(StateChange{
		State:   StateShowingResult,
		Message: result.GetWinDescription(),
		BetID:   placed.BetID,
		RunID:   runID,
	})

	o.logger.Info("旋转完成",
		zap.String("run_id", runID),
		zap.String("bet_id", placed.BetID),
		zap.Bool("is_win", result.IsWin),
		zap.Float64("win_amount", result.WinAmount))

	return result, nil
}

// waitHoldTime 持仓倒计时
func (o *Orchestrator) waitHoldTime(ctx context.Context, betID, runID string, holdSeconds int) error {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.state = StateWaiting
	o.cancelWait = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.cancelWait = nil
		o.mu.Unlock()
	}()

	o.emit(StateChange{
		State:         StateWaiting,
		Message:       "Waiting for market movement...",
		TimeRemaining: holdSeconds,
		BetID:         betID,
		RunID:         runID,
	})

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining := holdSeconds; remaining > 0; {
		select {
		case <-ticker.C:
			remaining--
			o.emit(StateChange{
				State:         StateWaiting,
				TimeRemaining: remaining,
				BetID:         betID,
				RunID:         runID,
			})
		case <-waitCtx.Done():
			// 父 context 取消时中止整个旋转；本地取消表示提前结算
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Info("倒计时被提前结算中断",
				zap.String("run_id", runID),
				zap.Int("remaining", remaining))
			return nil
		}
	}

	return nil
}

// abandonBet 异常中止时兜底结算持仓中的投注
func (o *Orchestrator) abandonBet(betID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := o.bets.ResolveBet(ctx, betID); err != nil {
		o.logger.Error("中止旋转后结算投注失败",
			zap.String("bet_id", betID), zap.Error(err))
	}
}

// saveSpinRecord 落库旋转记录
func (o *Orchestrator) saveSpinRecord(ctx context.Context, userID uint, result *slot.SpinResult) {
	if o.spinRepo == nil {
		return
	}

	record := &models.SpinRecord{
		UserID:      userID,
		BetID:       result.Bet.BetID,
		IsWin:       result.IsWin,
		WinAmount:   result.WinAmount,
		TotalPayout: result.TotalPayout,
		Multiplier:  result.Multiplier,
		Grid:        models.JSONMap{"symbols": result.Symbols},
		Clusters:    models.JSONMap{"clusters": result.Clusters},
		PlayedAt:    result.Timestamp,
	}
	if err := o.spinRepo.Create(ctx, record); err != nil {
		o.logger.Error("旋转记录落库失败",
			zap.String("bet_id", result.Bet.BetID), zap.Error(err))
	}
}

// resolveDirection 解析方向参数，random 等概率二选一
func (o *Orchestrator) resolveDirection(direction string) (models.BetDirection, error) {
	switch direction {
	case "up", "UP":
		return models.DirectionUp, nil
	case "down", "DOWN":
		return models.DirectionDown, nil
	case "random", "", "RANDOM":
		if o.randomGen.Next() < 0.5 {
			return models.DirectionUp, nil
		}
		return models.DirectionDown, nil
	default:
		return "", fmt.Errorf("无效的方向: %s", direction)
	}
}

// clampHoldSeconds 持仓时间裁剪到配置边界
func (o *Orchestrator) clampHoldSeconds(seconds int) int {
	if seconds <= 0 {
		return o.config.DefaultHoldSeconds
	}
	if seconds < o.config.MinHoldSeconds {
		return o.config.MinHoldSeconds
	}
	if seconds > o.config.MaxHoldSeconds {
		return o.config.MaxHoldSeconds
	}
	return seconds
}

// emit 推送状态变更并更新内部状态
func (o *Orchestrator) emit(change StateChange) {
	o.mu.Lock()
	o.state = change.State
	o.mu.Unlock()

	o.listenerMu.RLock()
	listeners := make([]StateListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.listenerMu.RUnlock()

	for _, listener := range listeners {
		listener(change)
	}
}

// sleepCtx 可取消的休眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
