package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaytable_Validate(t *testing.T) {
	pt := DefaultPaytable()
	require.NoError(t, pt.Validate())
}

func TestPaytable_PayoutMultiplier(t *testing.T) {
	pt := DefaultPaytable()

	tests := []struct {
		name   string
		symbol Symbol
		count  int
		want   float64
	}{
		{"最小簇规模", SymbolRedCandy, 5, 0.25},
		{"中间档位向下取整", SymbolRedCandy, 7, 0.40},
		{"最大档位", SymbolPinkBear, 15, 20.00},
		{"超过最大档位按15计", SymbolPinkBear, 20, 20.00},
		{"低于最小规模无赔付", SymbolRedCandy, 4, 0},
		{"未知符号无赔付", Symbol("UNKNOWN"), 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pt.PayoutMultiplier(tt.symbol, tt.count))
		})
	}
}

func TestPaytable_MonotonicWithinSymbol(t *testing.T) {
	pt := DefaultPaytable()

	// 同一符号下，簇越大赔率不降
	for _, symbol := range AllSymbols {
		prev := 0.0
		for count := MinClusterSize; count <= MaxPayoutSize; count++ {
			mult := pt.PayoutMultiplier(symbol, count)
			assert.GreaterOrEqual(t, mult, prev,
				"符号 %s 在规模 %d 处赔率下降", symbol, count)
			prev = mult
		}
	}
}

func TestPaytable_StrictAcrossTiers(t *testing.T) {
	pt := DefaultPaytable()

	// 同一簇规模下，稀有度更高的符号赔率严格更高
	for count := MinClusterSize; count <= MaxPayoutSize; count++ {
		for i := 1; i < len(AllSymbols); i++ {
			lower := pt.PayoutMultiplier(AllSymbols[i-1], count)
			higher := pt.PayoutMultiplier(AllSymbols[i], count)
			assert.Greater(t, higher, lower,
				"规模 %d 下 %s 未严格高于 %s", count, AllSymbols[i], AllSymbols[i-1])
		}
	}
}

func TestPaytable_Entries(t *testing.T) {
	pt := DefaultPaytable()
	entries := pt.Entries()

	require.NotEmpty(t, entries)

	// 条目按赔率从高到低排列
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Multiplier, entries[i].Multiplier)
	}

	// 最高条目应是最稀有符号的最大档位
	assert.Equal(t, SymbolPinkBear, entries[0].Symbol)
	assert.Equal(t, MaxPayoutSize, entries[0].Count)
}
