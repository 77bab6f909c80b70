package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/isnotcursed/polymarket-casino-slot/internal/bet"
	"github.com/isnotcursed/polymarket-casino-slot/internal/game/slot"
	"github.com/isnotcursed/polymarket-casino-slot/internal/market"
	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
)

// fastConfig 测试用配置：压缩动画与持仓时间
func fastConfig() *Config {
	return &Config{
		SpinAnimationDelay: 10 * time.Millisecond,
		MinHoldSeconds:     1,
		MaxHoldSeconds:     300,
		DefaultHoldSeconds: 1,
	}
}

// setupTestDB 设置测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Bet{},
		&models.SpinRecord{},
	)
	require.NoError(t, err)

	return db
}

// createTestUser 创建测试用户和钱包
func createTestUser(t *testing.T, db *gorm.DB, balance float64) uint {
	timestamp := time.Now().UnixNano()
	user := &models.User{
		Username: fmt.Sprintf("testuser_%d", timestamp),
	}
	require.NoError(t, db.Create(user).Error)

	wallet := &models.Wallet{UserID: user.ID, Balance: balance}
	require.NoError(t, db.Create(wallet).Error)

	return user.ID
}

// newTestOrchestrator 组装测试编排器
func newTestOrchestrator(t *testing.T, db *gorm.DB) *Orchestrator {
	client := market.NewDemoClient("test-market", 42, zap.NewNop())
	betSvc := bet.NewService(
		&bet.Config{MinBetAmount: 0.01, MinLiveBetAmount: 1},
		repository.NewBetRepository(db),
		repository.NewWalletRepository(db),
		client,
		zap.NewNop(),
	)
	machine, err := slot.NewSlotMachineService(slot.DefaultPaytable(), slot.NewRandomGenerator(7), zap.NewNop())
	require.NoError(t, err)

	return NewOrchestrator(
		fastConfig(),
		betSvc,
		machine,
		repository.NewSpinRecordRepository(db),
		slot.NewRandomGenerator(7),
		zap.NewNop(),
	)
}

func spinOpts(amount float64) *SpinOptions {
	return &SpinOptions{
		Amount:          amount,
		Direction:       "up",
		Mode:            models.ModeDemo,
		HoldTimeSeconds: 1,
	}
}

func TestOrchestrator_FullSpin(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 100)
	o := newTestOrchestrator(t, db)

	var changes []StateChange
	var mu sync.Mutex
	o.OnStateChange(func(change StateChange) {
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})

	result, err := o.Spin(context.Background(), userID, spinOpts(10))
	require.NoError(t, err)
	require.NotNil(t, result)

	// 结果与投注的财务结论一致
	assert.Equal(t, result.IsWin, result.Bet.Status == models.BetWon)
	if result.IsWin {
		assert.InDelta(t, result.Bet.Profit(), result.WinAmount, 1e-6)
	} else {
		assert.Equal(t, 0.0, result.WinAmount)
		assert.Empty(t, result.Clusters)
	}

	// 回到待机
	assert.Equal(t, StateIdle, o.State())
	assert.Empty(t, o.CurrentBetID())

	// 状态按既定顺序出现
	mu.Lock()
	defer mu.Unlock()
	var seen []GameState
	for _, c := range changes {
		if len(seen) == 0 || seen[len(seen)-1] != c.State {
			seen = append(seen, c.State)
		}
	}
	assert.Equal(t, []GameState{
		StatePlacingBet, StateSpinning, StateWaiting,
		StateResolving, StateShowingResult, StateIdle,
	}, seen)
}

func TestOrchestrator_SpinRecordPersisted(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 100)
	o := newTestOrchestrator(t, db)

	result, err := o.Spin(context.Background(), userID, spinOpts(10))
	require.NoError(t, err)

	record, err := repository.NewSpinRecordRepository(db).FindByBetID(context.Background(), result.Bet.BetID)
	require.NoError(t, err)
	assert.Equal(t, result.IsWin, record.IsWin)
	assert.InDelta(t, result.WinAmount, record.WinAmount, 1e-9)
}

func TestOrchestrator_RejectsConcurrentSpin(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 100)
	o := newTestOrchestrator(t, db)

	started := make(chan struct{})
	o.OnStateChange(func(change StateChange) {
		if change.State == StateWaiting && change.TimeRemaining > 0 {
			select {
			case started <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := o.Spin(context.Background(), userID, spinOpts(10))
		done <- err
	}()

	<-started

	// 进行中时新的旋转被拒绝
	_, err := o.Spin(context.Background(), userID, spinOpts(10))
	assert.ErrorIs(t, err, ErrGameInProgress)
	assert.Equal(t, "Game already in progress", ErrGameInProgress.Error())

	require.NoError(t, <-done)
}

func TestOrchestrator_CancelDuringWaiting(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 100)
	o := newTestOrchestrator(t, db)

	// 长持仓时间，靠取消提前结束
	opts := spinOpts(10)
	opts.HoldTimeSeconds = 120

	waiting := make(chan struct{})
	o.OnStateChange(func(change StateChange) {
		if change.State == StateWaiting {
			select {
			case waiting <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan *slot.SpinResult, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := o.Spin(context.Background(), userID, opts)
		done <- result
		errCh <- err
	}()

	<-waiting
	assert.True(t, o.Cancel())

	select {
	case result := <-done:
		require.NoError(t, <-errCh)
		// 提前结算仍产出完整结果
		require.NotNil(t, result)
		assert.True(t, result.Bet.Status.IsTerminal())
	case <-time.After(10 * time.Second):
		t.Fatal("取消后旋转未及时完成")
	}
}

func TestOrchestrator_CancelOutsideWaitingIsNoop(t *testing.T) {
	db := setupTestDB(t)
	o := newTestOrchestrator(t, db)

	// 待机状态下取消无效果
	assert.False(t, o.Cancel())
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestrator_FixedDirectionNeverFlips(t *testing.T) {
	db := setupTestDB(t)
	o := newTestOrchestrator(t, db)

	// 指定方向时多次解析结果必须恒定
	for i := 0; i < 100; i++ {
		direction, err := o.resolveDirection("up")
		require.NoError(t, err)
		require.Equal(t, models.DirectionUp, direction)

		direction, err = o.resolveDirection("down")
		require.NoError(t, err)
		require.Equal(t, models.DirectionDown, direction)
	}
}

func TestOrchestrator_FailedSpinReportsErrorOnIdle(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 5)
	o := newTestOrchestrator(t, db)

	var changes []StateChange
	var mu sync.Mutex
	o.OnStateChange(func(change StateChange) {
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})

	_, err := o.Spin(context.Background(), userID, spinOpts(10))
	require.Error(t, err)
	assert.Equal(t, StateIdle, o.State())

	// 回到待机的推送要带上失败原因
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, changes)
	last := changes[len(changes)-1]
	assert.Equal(t, StateIdle, last.State)
	assert.Equal(t, "Insufficient balance", last.Message)
}

func TestOrchestrator_RandomDirectionBothSidesAppear(t *testing.T) {
	db := setupTestDB(t)
	o := newTestOrchestrator(t, db)

	// 随机方向在大量采样下两个方向都应出现相当比例
	up, down := 0, 0
	for i := 0; i < 100; i++ {
		direction, err := o.resolveDirection("random")
		require.NoError(t, err)
		switch direction {
		case models.DirectionUp:
			up++
		case models.DirectionDown:
			down++
		}
	}

	assert.GreaterOrEqual(t, up, 20, "UP方向占比过低: %d/100", up)
	assert.GreaterOrEqual(t, down, 20, "DOWN方向占比过低: %d/100", down)
}

func TestOrchestrator_InvalidDirection(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, 100)
	o := newTestOrchestrator(t, db)

	opts := spinOpts(10)
	opts.Direction = "sideways"

	_, err := o.Spin(context.Background(), userID, opts)
	require.Error(t, err)
	assert.Equal(t, StateIdle, o.State())
}

func TestOrchestrator_HoldSecondsClamped(t *testing.T) {
	db := setupTestDB(t)
	o := newTestOrchestrator(t, db)

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"未指定用默认值", 0, 1},
		{"低于下限裁剪", -5, 1},
		{"上限裁剪", 100000, 300},
		{"区间内原样保留", 60, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.clampHoldSeconds(tt.in))
		})
	}
}

func TestManager_PerUserOrchestrators(t *testing.T) {
	db := setupTestDB(t)
	client := market.NewDemoClient("test-market", 42, zap.NewNop())
	betSvc := bet.NewService(nil,
		repository.NewBetRepository(db),
		repository.NewWalletRepository(db),
		client, zap.NewNop())
	machine, err := slot.NewSlotMachineService(slot.DefaultPaytable(), slot.NewRandomGenerator(1), zap.NewNop())
	require.NoError(t, err)

	m := NewManager(fastConfig(), betSvc, machine, repository.NewSpinRecordRepository(db), zap.NewNop())

	a := m.Get(1)
	b := m.Get(2)
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.Get(1))

	m.Remove(1)
	assert.NotSame(t, a, m.Get(1))
}
