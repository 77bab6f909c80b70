package slot

import (
	"sort"
)

// Cluster 同符号4连通区域
//
// 从网格派生的只读数据：所有坐标符号相同且构成单一4连通分量，
// Count 恒等于坐标数。只有规模 ≥ 5 的区域才构成簇。
type Cluster struct {
	Symbol    Symbol     `json:"symbol"`
	Positions []Position `json:"positions"`
	Count     int        `json:"count"`
	Payout    float64    `json:"payout"` // 赔付金额 = 倍数 × 本金
}

// FindClusters 查找网格中全部中奖簇
//
// 对49个格子做BFS洪泛填充（4连通），只报告规模 ≥ 5 的区域；
// 结果按 (payout, count) 升序排列，保证下游处理顺序确定。
// 簇之间互不重叠，且每个簇对其符号而言是极大连通区域。
func FindClusters(grid Grid, paytable *Paytable, stake float64) []Cluster {
	visited := make([][]bool, GridCols)
	for col := range visited {
		visited[col] = make([]bool, GridRows)
	}

	var clusters []Cluster

	for col := 0; col < GridCols; col++ {
		for row := 0; row < GridRows; row++ {
			if visited[col][row] {
				continue
			}

			positions := floodFill(grid, visited, Position{Col: col, Row: row})
			if len(positions) < MinClusterSize {
				continue
			}

			symbol := grid[col][row]
			multiplier := paytable.PayoutMultiplier(symbol, len(positions))
			clusters = append(clusters, Cluster{
				Symbol:    symbol,
				Positions: positions,
				Count:     len(positions),
				Payout:    multiplier * stake,
			})
		}
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Payout != clusters[j].Payout {
			return clusters[i].Payout < clusters[j].Payout
		}
		return clusters[i].Count < clusters[j].Count
	})

	return clusters
}

// floodFill 从起点广度优先收集同符号连通区域
func floodFill(grid Grid, visited [][]bool, start Position) []Position {
	symbol := grid[start.Col][start.Row]
	visited[start.Col][start.Row] = true

	queue := []Position{start}
	positions := []Position{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range Neighbors(current) {
			if visited[next.Col][next.Row] {
				continue
			}
			if grid[next.Col][next.Row] != symbol {
				continue
			}
			visited[next.Col][next.Row] = true
			queue = append(queue, next)
			positions = append(positions, next)
		}
	}

	return positions
}
