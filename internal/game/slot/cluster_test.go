package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillGrid 用单一符号填满网格
func fillGrid(symbol Symbol) Grid {
	grid := NewGrid()
	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			grid[col][row] = symbol
		}
	}
	return grid
}

// paintCells 把指定格子改写为指定符号
func paintCells(grid Grid, symbol Symbol, positions ...Position) {
	for _, pos := range positions {
		grid[pos.Col][pos.Row] = symbol
	}
}

func TestFindClusters_SingleCluster(t *testing.T) {
	pt := DefaultPaytable()
	grid := fillGrid(SymbolRedCandy)

	// 中心画一个规模5的蓝熊十字簇
	cross := []Position{{3, 3}, {2, 3}, {4, 3}, {3, 2}, {3, 4}}
	paintCells(grid, SymbolBlueBear, cross...)

	// 打碎背景红糖的连通性，避免背景自身成簇
	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if grid[col][row] == SymbolRedCandy && (col+row)%2 == 0 {
				grid[col][row] = SymbolGreenCandy
			}
		}
	}

	clusters := FindClusters(grid, pt, 10)

	require.Len(t, clusters, 1)
	assert.Equal(t, SymbolBlueBear, clusters[0].Symbol)
	assert.Equal(t, 5, clusters[0].Count)
	// 赔付 = 赔率 × 本金
	assert.InDelta(t, pt.PayoutMultiplier(SymbolBlueBear, 5)*10, clusters[0].Payout, 1e-9)
}

func TestFindClusters_BelowMinSizeIgnored(t *testing.T) {
	pt := DefaultPaytable()
	grid := NewGrid()

	// 棋盘格背景不可能成簇
	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if (col+row)%2 == 0 {
				grid[col][row] = SymbolRedCandy
			} else {
				grid[col][row] = SymbolGreenCandy
			}
		}
	}

	// 规模4的区域不计入
	paintCells(grid, SymbolPinkBear, Position{0, 0}, Position{0, 1}, Position{1, 0}, Position{1, 1})

	clusters := FindClusters(grid, pt, 10)
	assert.Empty(t, clusters)
}

func TestFindClusters_DiagonalNotConnected(t *testing.T) {
	pt := DefaultPaytable()
	grid := NewGrid()

	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if (col+row)%2 == 0 {
				grid[col][row] = SymbolRedCandy
			} else {
				grid[col][row] = SymbolGreenCandy
			}
		}
	}

	// 5个对角相邻的粉熊：对角不算连通，不应成簇
	paintCells(grid, SymbolPinkBear,
		Position{0, 0}, Position{1, 1}, Position{2, 2}, Position{3, 3}, Position{4, 4})

	clusters := FindClusters(grid, pt, 10)
	assert.Empty(t, clusters)
}

func TestFindClusters_SortedByPayoutAscending(t *testing.T) {
	pt := DefaultPaytable()
	grid := NewGrid()

	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if (col+row)%2 == 0 {
				grid[col][row] = SymbolRedCandy
			} else {
				grid[col][row] = SymbolGreenCandy
			}
		}
	}

	// 左侧一列5个粉熊（高赔），右侧一列5个黄熊（低赔）
	paintCells(grid, SymbolPinkBear,
		Position{0, 0}, Position{0, 1}, Position{0, 2}, Position{0, 3}, Position{0, 4})
	paintCells(grid, SymbolYellowBear,
		Position{6, 0}, Position{6, 1}, Position{6, 2}, Position{6, 3}, Position{6, 4})

	clusters := FindClusters(grid, pt, 10)

	require.Len(t, clusters, 2)
	// 升序：低赔付在前
	assert.Equal(t, SymbolYellowBear, clusters[0].Symbol)
	assert.Equal(t, SymbolPinkBear, clusters[1].Symbol)
	assert.LessOrEqual(t, clusters[0].Payout, clusters[1].Payout)
}

func TestFindClusters_PositionsMatchGrid(t *testing.T) {
	pt := DefaultPaytable()
	rng := NewRandomGenerator(42)
	grid := RandomGrid(rng)

	clusters := FindClusters(grid, pt, 10)

	// 每个簇的坐标在网格上必须确实是该符号
	for _, cluster := range clusters {
		assert.GreaterOrEqual(t, cluster.Count, MinClusterSize)
		assert.Len(t, cluster.Positions, cluster.Count)
		for _, pos := range cluster.Positions {
			assert.Equal(t, cluster.Symbol, grid[pos.Col][pos.Row])
		}
	}
}

func TestFindClusters_Deterministic(t *testing.T) {
	pt := DefaultPaytable()
	rng := NewRandomGenerator(7)

	// 同一网格重复扫描必须得到完全一致的结果
	for i := 0; i < 50; i++ {
		grid := RandomGrid(rng)
		first := FindClusters(grid, pt, 10)
		second := FindClusters(grid, pt, 10)
		require.Equal(t, first, second)
	}
}
