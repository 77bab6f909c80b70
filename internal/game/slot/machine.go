package slot

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidPaytable   = errors.New("无效的赔率表")
	ErrInvalidResolution = errors.New("无效的结算结果")
)

const (
	// maxBreakAttempts 输局打散中奖簇的最大重试次数
	maxBreakAttempts = 8
	// maxPlannedClusters 单次旋转最多规划的簇数量
	maxPlannedClusters = 3
	// remainderStopRatio 剩余目标低于本金的该比例时停止追加簇
	remainderStopRatio = 0.2
	// localGrowAttempts 单步随机生长的尝试次数
	localGrowAttempts = 24
	// seedScanAttempts 随机寻找种子格子的尝试次数
	seedScanAttempts = 200
)

// SlotMachineService 结果合成器
//
// 把已结算仓位的真实盈亏转换成 7×7 符号网格：网格上可见的中奖簇
// 必须在视觉上正当化该笔盈亏，而不允许与财务结果矛盾。
type SlotMachineService struct {
	mu        sync.Mutex
	paytable  *Paytable
	randomGen RandomGenerator
	logger    *zap.Logger
}

// plannedCluster 规划中的簇
type plannedCluster struct {
	symbol Symbol
	count  int
	profit float64
}

// NewSlotMachineService 创建结果合成器
func NewSlotMachineService(paytable *Paytable, randomGen RandomGenerator, logger *zap.Logger) (*SlotMachineService, error) {
	if paytable == nil {
		return nil, ErrInvalidPaytable
	}
	if err := paytable.Validate(); err != nil {
		return nil, err
	}
	if randomGen == nil {
		randomGen = NewRandomGenerator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SlotMachineService{
		paytable:  paytable,
		randomGen: randomGen,
		logger:    logger,
	}, nil
}

// GenerateSpinResult 根据结算结果合成旋转结果
//
// 返回值契约：WinAmount 与 TotalPayout 恒等于真实财务结果；
// Clusters 的坐标与 Symbols 网格中实际连通的区域一致，赔付经过
// 线性缩放使其总和恰好等于净盈利。
func (s *SlotMachineService) GenerateSpinResult(resolution *Resolution) (*SpinResult, error) {
	if resolution == nil || resolution.Bet == nil {
		return nil, ErrInvalidResolution
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stake := resolution.Bet.Amount
	targetProfit := resolution.TargetProfit()

	if targetProfit <= 0 {
		return s.generateLosingResult(resolution, stake), nil
	}
	return s.generateWinningResult(resolution, stake, targetProfit), nil
}

// generateLosingResult 生成输局结果
//
// 随机网格上偶然出现的中奖簇会与"输"的结论矛盾，打散它们；
// 有界重试，超过上限接受残留簇（容忍视觉瑕疵，不容忍无界循环）。
func (s *SlotMachineService) generateLosingResult(resolution *Resolution, stake float64) *SpinResult {
	grid := RandomGrid(s.randomGen)

	for attempt := 0; attempt < maxBreakAttempts; attempt++ {
		clusters := FindClusters(grid, s.paytable, stake)
		if len(clusters) == 0 {
			break
		}
		for _, cluster := range clusters {
			s.breakCluster(grid, cluster)
		}
	}

	if leftover := FindClusters(grid, s.paytable, stake); len(leftover) > 0 {
		s.logger.Warn("输局网格仍残留中奖簇",
			zap.Int("clusters", len(leftover)),
			zap.String("bet_id", resolution.Bet.BetID))
	}

	totalPayout := math.Max(0, resolution.Payout)

	return &SpinResult{
		Symbols:     grid,
		IsWin:       false,
		WinAmount:   0,
		TotalPayout: totalPayout,
		Multiplier:  safeRatio(totalPayout, stake),
		Bet:         resolution.Bet,
		Clusters:    []Cluster{},
		Timestamp:   time.Now(),
	}
}

// breakCluster 打散一个簇：改写足够多的格子使其规模降到5以下
func (s *SlotMachineService) breakCluster(grid Grid, cluster Cluster) {
	mutations := cluster.Count - MinClusterSize + 1
	for i := 0; i < mutations && i < len(cluster.Positions); i++ {
		pos := cluster.Positions[i]
		grid[pos.Col][pos.Row] = RandomSymbolExcept(s.randomGen, cluster.Symbol)
	}
}

// generateWinningResult 生成赢局结果
func (s *SlotMachineService) generateWinningResult(resolution *Resolution, stake, targetProfit float64) *SpinResult {
	plan := s.selectClusters(targetProfit, stake)

	grid := s.synthesizeGrid(plan)
	clusters := FindClusters(grid, s.paytable, stake)

	// 合成可能因与背景符号意外合并而失真；检测不到任何簇时降级重试
	if len(clusters) == 0 && len(plan) > 0 {
		best := plan[0]
		for _, pc := range plan[1:] {
			if pc.profit > best.profit {
				best = pc
			}
		}
		grid = s.synthesizeGrid([]plannedCluster{best})
		clusters = FindClusters(grid, s.paytable, stake)
	}

	// 最终兜底：强制画出一个规模5的簇，保证赢局一定有可见中奖
	if len(clusters) == 0 {
		s.forceMinimalCluster(grid)
		clusters = FindClusters(grid, s.paytable, stake)
	}

	// 赔付校准：把检测到的簇赔付线性缩放，使总和恰好等于净盈利
	rawProfit := 0.0
	for _, cluster := range clusters {
		rawProfit += cluster.Payout
	}
	if rawProfit > 0 {
		scale := targetProfit / rawProfit
		for i := range clusters {
			clusters[i].Payout *= scale
		}
	}

	s.logger.Debug("赢局网格合成完成",
		zap.String("bet_id", resolution.Bet.BetID),
		zap.Float64("target_profit", targetProfit),
		zap.Int("planned", len(plan)),
		zap.Int("detected", len(clusters)))

	return &SpinResult{
		Symbols:     grid,
		IsWin:       true,
		WinAmount:   targetProfit,
		TotalPayout: resolution.Payout,
		Multiplier:  safeRatio(resolution.Payout, stake),
		Bet:         resolution.Bet,
		Clusters:    clusters,
		Timestamp:   time.Now(),
	}
}

// selectClusters 贪心挑选簇组合逼近目标盈利
//
// 每步在全部赔率条目中选取与当前剩余目标差值最小的一条，
// 最多3个簇；剩余目标低于 0.2×本金 时提前停止。
// 这是近似而非精确分解，展示总额靠后续缩放对齐。
func (s *SlotMachineService) selectClusters(targetProfit, stake float64) []plannedCluster {
	entries := s.paytable.Entries()
	if len(entries) == 0 || stake <= 0 {
		return nil
	}

	var plan []plannedCluster
	remaining := targetProfit

	for len(plan) < maxPlannedClusters {
		best := entries[0]
		bestDiff := math.Abs(best.Multiplier*stake - remaining)
		for _, entry := range entries[1:] {
			diff := math.Abs(entry.Multiplier*stake - remaining)
			if diff < bestDiff {
				best = entry
				bestDiff = diff
			}
		}

		profit := best.Multiplier * stake
		plan = append(plan, plannedCluster{
			symbol: best.Symbol,
			count:  best.Count,
			profit: profit,
		})
		remaining -= profit

		if remaining < remainderStopRatio*stake {
			break
		}
	}

	return plan
}

// synthesizeGrid 把规划的簇渲染进随机背景网格
func (s *SlotMachineService) synthesizeGrid(plan []plannedCluster) Grid {
	grid := RandomGrid(s.randomGen)

	claimed := make([][]bool, GridCols)
	for col := range claimed {
		claimed[col] = make([]bool, GridRows)
	}

	for i, pc := range plan {
		var seed Position
		if i == 0 {
			seed = Position{Col: GridCols / 2, Row: GridRows / 2}
		} else {
			found := false
			seed, found = s.findSeed(claimed)
			if !found {
				continue
			}
		}
		s.growBlob(grid, claimed, seed, pc.symbol, pc.count)
	}

	return grid
}

// findSeed 为后续簇寻找无冲突的种子格子
//
// 优先选择既未被占用、四邻也未被占用的格子，避免与已有簇粘连；
// 随机探测失败后退化为任意未占用格子。
func (s *SlotMachineService) findSeed(claimed [][]bool) (Position, bool) {
	for attempt := 0; attempt < seedScanAttempts; attempt++ {
		pos := Position{
			Col: s.randomGen.NextInt(0, GridCols),
			Row: s.randomGen.NextInt(0, GridRows),
		}
		if claimed[pos.Col][pos.Row] {
			continue
		}
		adjacent := false
		for _, n := range Neighbors(pos) {
			if claimed[n.Col][n.Row] {
				adjacent = true
				break
			}
		}
		if !adjacent {
			return pos, true
		}
	}

	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if !claimed[col][row] {
				return Position{Col: col, Row: row}, true
			}
		}
	}

	return Position{}, false
}

// growBlob 从种子向外生长出指定规模的同符号连通块
//
// 随机挑选已有块内格子和它的随机邻居向外扩张；局部生长停滞时
// 先全块扫描邻居，再退化为全网格扫描任意未占用格子强制并入，
// 保证最终恰好达到请求的规模。
func (s *SlotMachineService) growBlob(grid Grid, claimed [][]bool, seed Position, symbol Symbol, size int) {
	grid[seed.Col][seed.Row] = symbol
	claimed[seed.Col][seed.Row] = true
	blob := []Position{seed}

	absorb := func(pos Position) {
		grid[pos.Col][pos.Row] = symbol
		claimed[pos.Col][pos.Row] = true
		blob = append(blob, pos)
	}

	for len(blob) < size {
		grown := false

		// 局部随机生长
		for attempt := 0; attempt < localGrowAttempts; attempt++ {
			cell := blob[s.randomGen.NextInt(0, len(blob))]
			neighbors := Neighbors(cell)
			next := neighbors[s.randomGen.NextInt(0, len(neighbors))]
			if !claimed[next.Col][next.Row] {
				absorb(next)
				grown = true
				break
			}
		}
		if grown {
			continue
		}

		// 全块扫描：任意块内格子的未占用邻居
		for _, cell := range blob {
			for _, next := range Neighbors(cell) {
				if !claimed[next.Col][next.Row] {
					absorb(next)
					grown = true
					break
				}
			}
			if grown {
				break
			}
		}
		if grown {
			continue
		}

		// 全网格扫描：强制并入任意未占用格子
		for col := 0; col < GridCols && !grown; col++ {
			for row := 0; row < GridRows; row++ {
				if !claimed[col][row] {
					absorb(Position{Col: col, Row: row})
					grown = true
					break
				}
			}
		}
		if !grown {
			// 网格已满，无法继续生长
			break
		}
	}
}

// forceMinimalCluster 在网格中心强制画出一个规模5的十字簇
func (s *SlotMachineService) forceMinimalCluster(grid Grid) {
	symbol := RandomSymbol(s.randomGen)
	center := Position{Col: GridCols / 2, Row: GridRows / 2}

	grid[center.Col][center.Row] = symbol
	for _, pos := range Neighbors(center) {
		grid[pos.Col][pos.Row] = symbol
	}
}

// safeRatio 计算比值，除数为0时返回0
func safeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
