package internal

// 系統設計問題：
//   伺服器端如何裁定一局井字棋？
//
// 核心原則：
//   客戶端不可信任。棋盤狀態、回合歸屬、勝負判定全部由伺服器持有，
//   客戶端只負責渲染與送出意圖（makeMove）。
//
// 設計方案：
//   ✅ 固定長度棋盤 [9]Symbol - 值類型，複製即快照
//   ✅ 勝利判定窮舉 8 條連線 - 3 橫 3 直 2 斜
//   ✅ 棋局結束後凍結棋盤 - 不再接受任何落子

// Symbol 玩家符號，同時也是棋盤格的標記。
//
// 空格用空字串表示，與線路格式一致（gameState 序列化為
// ["", "X", ...]，客戶端可直接渲染）。
type Symbol string

const (
	SymbolNone Symbol = ""  // 空格
	SymbolX    Symbol = "X" // 先手（房主）
	SymbolO    Symbol = "O" // 後手（加入者）
)

// Opponent 取得對方符號
func (s Symbol) Opponent() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// Board 3x3 棋盤，索引 0-8 由左至右、由上至下。
//
// 使用陣列而非 slice：
//   - 長度不變量（恰好 9 格）由類型系統保證
//   - 值語義：賦值即深拷貝，廣播快照不需手動複製
type Board [9]Symbol

// winningLines 8 條獲勝連線（3 橫、3 直、2 斜）
var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // 橫
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // 直
	{0, 4, 8}, {2, 4, 6}, // 斜
}

// Winner 判定獲勝者。
// 回傳獲勝符號；無人獲勝回傳 SymbolNone。
func (b Board) Winner() Symbol {
	for _, line := range winningLines {
		if b[line[0]] != SymbolNone &&
			b[line[0]] == b[line[1]] &&
			b[line[1]] == b[line[2]] {
			return b[line[0]]
		}
	}
	return SymbolNone
}

// Full 檢查棋盤是否已填滿
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == SymbolNone {
			return false
		}
	}
	return true
}

// ValidCell 檢查格子索引是否在 0-8 範圍內
func ValidCell(index int) bool {
	return index >= 0 && index <= 8
}
