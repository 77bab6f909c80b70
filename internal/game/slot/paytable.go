package slot

import (
	"fmt"
	"sort"
)

// 赔率表中列出的最小和最大簇规模
const (
	MinClusterSize = 5
	MaxPayoutSize  = 15
)

// Paytable 赔率表：按 (符号, 簇规模) 查询本金倍数
//
// 每个符号给出规模 5..15 的倍数序列，倍数随规模单调不减；
// 同一规模下，稀有符号倍数严格高于常见符号。
type Paytable struct {
	multipliers map[Symbol][]float64 // 下标0对应规模5
}

// PaytableEntry 赔率表条目
type PaytableEntry struct {
	Symbol     Symbol  `json:"symbol"`
	Count      int     `json:"count"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultPaytable 创建默认赔率表
func DefaultPaytable() *Paytable {
	return &Paytable{
		multipliers: map[Symbol][]float64{
			//                      规模:  5     6     7     8     9    10    11    12    13    14    15
			SymbolRedCandy:    {0.25, 0.30, 0.40, 0.50, 0.60, 0.80, 1.00, 1.20, 1.50, 2.00, 2.50},
			SymbolGreenCandy:  {0.40, 0.50, 0.60, 0.80, 1.00, 1.20, 1.50, 2.00, 2.50, 3.00, 4.00},
			SymbolPurpleCandy: {0.50, 0.70, 0.90, 1.20, 1.50, 2.00, 2.50, 3.00, 4.00, 5.00, 6.00},
			SymbolYellowBear:  {0.80, 1.00, 1.50, 2.00, 2.50, 3.00, 4.00, 5.00, 6.00, 8.00, 10.00},
			SymbolBlueBear:    {1.00, 1.50, 2.00, 2.50, 3.00, 4.00, 5.00, 6.00, 8.00, 10.00, 12.00},
			SymbolPinkBear:    {1.50, 2.00, 2.50, 3.00, 5.00, 6.00, 8.00, 10.00, 12.00, 15.00, 20.00},
		},
	}
}

// Validate 验证赔率表合法性
func (p *Paytable) Validate() error {
	for _, symbol := range AllSymbols {
		values, ok := p.multipliers[symbol]
		if !ok {
			return fmt.Errorf("赔率表缺少符号: %s", symbol)
		}
		if len(values) != MaxPayoutSize-MinClusterSize+1 {
			return fmt.Errorf("符号 %s 的赔率条目数量错误: %d", symbol, len(values))
		}
		for i := 1; i < len(values); i++ {
			if values[i] < values[i-1] {
				return fmt.Errorf("符号 %s 的赔率在规模 %d 处递减", symbol, MinClusterSize+i)
			}
		}
	}

	// 同一规模下稀有度越高倍数必须严格越大
	for i := 0; i <= MaxPayoutSize-MinClusterSize; i++ {
		for t := 1; t < len(AllSymbols); t++ {
			lower := p.multipliers[AllSymbols[t-1]][i]
			higher := p.multipliers[AllSymbols[t]][i]
			if higher <= lower {
				return fmt.Errorf("规模 %d 处符号 %s 的赔率未高于 %s",
					MinClusterSize+i, AllSymbols[t], AllSymbols[t-1])
			}
		}
	}

	return nil
}

// PayoutMultiplier 获取 (符号, 簇规模) 对应的本金倍数
//
// 规模不是精确条目时取不大于该规模的最大条目（floor查询）；
// 超过15按15计。符号不在封闭集内属于配置错误，返回0并由调用方兜底。
func (p *Paytable) PayoutMultiplier(symbol Symbol, count int) float64 {
	values, ok := p.multipliers[symbol]
	if !ok {
		return 0
	}
	if count < MinClusterSize {
		return 0
	}
	if count > MaxPayoutSize {
		count = MaxPayoutSize
	}
	return values[count-MinClusterSize]
}

// Entries 返回全部赔率条目，按倍数降序排列
func (p *Paytable) Entries() []PaytableEntry {
	var entries []PaytableEntry
	for _, symbol := range AllSymbols {
		for count := MinClusterSize; count <= MaxPayoutSize; count++ {
			entries = append(entries, PaytableEntry{
				Symbol:     symbol,
				Count:      count,
				Multiplier: p.PayoutMultiplier(symbol, count),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Multiplier > entries[j].Multiplier
	})

	return entries
}
