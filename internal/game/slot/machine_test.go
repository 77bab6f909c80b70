package slot

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
)

// newTestMachine 创建固定种子的合成器
func newTestMachine(t *testing.T, seed int64) *SlotMachineService {
	machine, err := NewSlotMachineService(DefaultPaytable(), NewRandomGenerator(seed), zap.NewNop())
	require.NoError(t, err)
	return machine
}

// newResolution 构造一笔已结算的注单
func newResolution(stake, payout float64) *Resolution {
	return &Resolution{
		Payout: payout,
		Bet: &models.Bet{
			BetID:  uuid.New().String(),
			Amount: stake,
			Status: models.BetWon,
		},
	}
}

func TestGenerateSpinResult_WinningSpin(t *testing.T) {
	machine := newTestMachine(t, 1)

	// 下注10，赔付25：净盈利15，倍率2.5
	result, err := machine.GenerateSpinResult(newResolution(10, 25))
	require.NoError(t, err)

	assert.True(t, result.IsWin)
	assert.InDelta(t, 15.0, result.WinAmount, 1e-9)
	assert.InDelta(t, 25.0, result.TotalPayout, 1e-9)
	assert.InDelta(t, 2.5, result.Multiplier, 1e-9)
	assert.NotEmpty(t, result.Clusters)

	// 簇赔付总和恰好等于净盈利
	sum := 0.0
	for _, cluster := range result.Clusters {
		sum += cluster.Payout
	}
	assert.InDelta(t, result.WinAmount, sum, 1e-6)
}

func TestGenerateSpinResult_ClustersExistOnGrid(t *testing.T) {
	machine := newTestMachine(t, 2)

	result, err := machine.GenerateSpinResult(newResolution(10, 37.5))
	require.NoError(t, err)
	require.True(t, result.IsWin)

	// 展示的簇必须与网格上实际连通的区域一致
	for _, cluster := range result.Clusters {
		require.GreaterOrEqual(t, cluster.Count, MinClusterSize)
		for _, pos := range cluster.Positions {
			assert.Equal(t, cluster.Symbol, result.Symbols[pos.Col][pos.Row])
		}
	}
}

func TestGenerateSpinResult_LosingSpin(t *testing.T) {
	machine := newTestMachine(t, 3)

	// 下注10，赔付4：亏损，无中奖展示
	result, err := machine.GenerateSpinResult(newResolution(10, 4))
	require.NoError(t, err)

	assert.False(t, result.IsWin)
	assert.Equal(t, 0.0, result.WinAmount)
	assert.InDelta(t, 4.0, result.TotalPayout, 1e-9)
	assert.InDelta(t, 0.4, result.Multiplier, 1e-9)
	assert.Empty(t, result.Clusters)
}

func TestGenerateSpinResult_BreakEvenIsLoss(t *testing.T) {
	machine := newTestMachine(t, 4)

	// 赔付等于本金：净盈利为0，按输局处理
	result, err := machine.GenerateSpinResult(newResolution(10, 10))
	require.NoError(t, err)

	assert.False(t, result.IsWin)
	assert.Equal(t, 0.0, result.WinAmount)
	assert.InDelta(t, 10.0, result.TotalPayout, 1e-9)
}

func TestGenerateSpinResult_LosingGridsMostlyClusterFree(t *testing.T) {
	machine := newTestMachine(t, 5)
	pt := DefaultPaytable()

	const runs = 200
	clean := 0
	for i := 0; i < runs; i++ {
		result, err := machine.GenerateSpinResult(newResolution(10, 0))
		require.NoError(t, err)
		require.False(t, result.IsWin)

		if len(FindClusters(result.Symbols, pt, 10)) == 0 {
			clean++
		}
	}

	// 打散是有界重试，允许极少数残留
	assert.GreaterOrEqual(t, clean, runs*95/100,
		"输局网格残留中奖簇的比例过高: %d/%d 干净", clean, runs)
}

func TestGenerateSpinResult_PayoutSumMatchesAcrossTargets(t *testing.T) {
	machine := newTestMachine(t, 6)

	targets := []float64{12.5, 25, 50, 100, 333.33, 1000}
	for _, payout := range targets {
		result, err := machine.GenerateSpinResult(newResolution(10, payout))
		require.NoError(t, err)
		require.True(t, result.IsWin)
		require.NotEmpty(t, result.Clusters)

		sum := 0.0
		for _, cluster := range result.Clusters {
			sum += cluster.Payout
		}
		assert.InDelta(t, payout-10, sum, 1e-6, "目标赔付 %v", payout)
	}
}

func TestGenerateSpinResult_AtMostThreeClusters(t *testing.T) {
	machine := newTestMachine(t, 7)

	for i := 0; i < 50; i++ {
		result, err := machine.GenerateSpinResult(newResolution(10, 500))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(result.Clusters), maxPlannedClusters+2,
			"规划最多3个簇，意外粘连或分裂最多再多出有限几个")
	}
}

func TestGenerateSpinResult_InvalidInput(t *testing.T) {
	machine := newTestMachine(t, 8)

	_, err := machine.GenerateSpinResult(nil)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = machine.GenerateSpinResult(&Resolution{Payout: 10})
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestNewSlotMachineService_NilPaytable(t *testing.T) {
	_, err := NewSlotMachineService(nil, NewRandomGenerator(1), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidPaytable)
}
