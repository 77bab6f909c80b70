package slot

// Symbol 游戏符号
type Symbol string

const (
	SymbolRedCandy    Symbol = "RED_CANDY"    // 红色糖果（最常见）
	SymbolGreenCandy  Symbol = "GREEN_CANDY"  // 绿色糖果
	SymbolPurpleCandy Symbol = "PURPLE_CANDY" // 紫色糖果
	SymbolYellowBear  Symbol = "YELLOW_BEAR"  // 黄色软糖熊
	SymbolBlueBear    Symbol = "BLUE_BEAR"    // 蓝色软糖熊
	SymbolPinkBear    Symbol = "PINK_BEAR"    // 粉色软糖熊（最稀有）
)

// AllSymbols 全部符号，按稀有度从低到高排列
var AllSymbols = []Symbol{
	SymbolRedCandy,
	SymbolGreenCandy,
	SymbolPurpleCandy,
	SymbolYellowBear,
	SymbolBlueBear,
	SymbolPinkBear,
}

// SymbolInfo 符号信息
type SymbolInfo struct {
	ID      Symbol `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`    // candy, bear
	Display string `json:"display"` // 显示字符
	Tier    int    `json:"tier"`    // 稀有度等级，越大越稀有
}

var symbolInfos = map[Symbol]*SymbolInfo{
	SymbolRedCandy:    {ID: SymbolRedCandy, Name: "红色糖果", Type: "candy", Display: "🍬", Tier: 0},
	SymbolGreenCandy:  {ID: SymbolGreenCandy, Name: "绿色糖果", Type: "candy", Display: "🍭", Tier: 1},
	SymbolPurpleCandy: {ID: SymbolPurpleCandy, Name: "紫色糖果", Type: "candy", Display: "🍇", Tier: 2},
	SymbolYellowBear:  {ID: SymbolYellowBear, Name: "黄色软糖熊", Type: "bear", Display: "🐻", Tier: 3},
	SymbolBlueBear:    {ID: SymbolBlueBear, Name: "蓝色软糖熊", Type: "bear", Display: "🧸", Tier: 4},
	SymbolPinkBear:    {ID: SymbolPinkBear, Name: "粉色软糖熊", Type: "bear", Display: "🎀", Tier: 5},
}

// GetSymbolInfo 获取符号信息
func GetSymbolInfo(symbol Symbol) *SymbolInfo {
	if info, exists := symbolInfos[symbol]; exists {
		return info
	}
	return &SymbolInfo{
		ID:      symbol,
		Name:    "未知符号",
		Type:    "unknown",
		Display: "?",
		Tier:    -1,
	}
}

// IsValidSymbol 判断符号是否属于封闭符号集
func IsValidSymbol(symbol Symbol) bool {
	_, exists := symbolInfos[symbol]
	return exists
}

// SymbolTier 返回符号的稀有度等级
func SymbolTier(symbol Symbol) int {
	return GetSymbolInfo(symbol).Tier
}
