package slot

import (
	"math/rand"
	"sync"
	"time"
)

// 网格尺寸：7列 × 7行
const (
	GridCols = 7
	GridRows = 7
)

// Position 网格坐标
type Position struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Grid 符号网格，按 grid[col][row] 索引
type Grid [][]Symbol

// NewGrid 创建空网格
func NewGrid() Grid {
	grid := make(Grid, GridCols)
	for col := range grid {
		grid[col] = make([]Symbol, GridRows)
	}
	return grid
}

// Clone 深拷贝网格
func (g Grid) Clone() Grid {
	clone := make(Grid, len(g))
	for col := range g {
		clone[col] = make([]Symbol, len(g[col]))
		copy(clone[col], g[col])
	}
	return clone
}

// InBounds 判断坐标是否在网格内
func InBounds(pos Position) bool {
	return pos.Col >= 0 && pos.Col < GridCols && pos.Row >= 0 && pos.Row < GridRows
}

// Neighbors 返回4连通相邻坐标（上下左右，不含对角线）
func Neighbors(pos Position) []Position {
	candidates := []Position{
		{Col: pos.Col, Row: pos.Row - 1},
		{Col: pos.Col, Row: pos.Row + 1},
		{Col: pos.Col - 1, Row: pos.Row},
		{Col: pos.Col + 1, Row: pos.Row},
	}

	neighbors := make([]Position, 0, 4)
	for _, c := range candidates {
		if InBounds(c) {
			neighbors = append(neighbors, c)
		}
	}
	return neighbors
}

// RandomGenerator 随机数生成器接口
type RandomGenerator interface {
	// Next 生成 [0,1) 随机数
	Next() float64
	// NextInt 生成 [min,max) 随机整数
	NextInt(min, max int) int
}

// seededRandomGenerator 基于math/rand的可播种随机数生成器
type seededRandomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGenerator 创建随机数生成器
func NewRandomGenerator(seed int64) RandomGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &seededRandomGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Next 生成 [0,1) 随机数
func (g *seededRandomGenerator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

// NextInt 生成 [min,max) 随机整数
func (g *seededRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rng.Intn(max-min)
}

// RandomSymbol 随机选择一个符号
func RandomSymbol(rng RandomGenerator) Symbol {
	return AllSymbols[rng.NextInt(0, len(AllSymbols))]
}

// RandomSymbolExcept 随机选择一个不等于exclude的符号
func RandomSymbolExcept(rng RandomGenerator, exclude Symbol) Symbol {
	for {
		symbol := RandomSymbol(rng)
		if symbol != exclude {
			return symbol
		}
	}
}

// RandomGrid 生成全随机网格：49个格子各自独立均匀随机取符号
func RandomGrid(rng RandomGenerator) Grid {
	grid := NewGrid()
	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			grid[col][row] = RandomSymbol(rng)
		}
	}
	return grid
}
