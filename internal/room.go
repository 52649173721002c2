package internal

import (
	"slices"
	"sync"
	"time"
)

// 系統設計問題：
//   如何管理雙人對弈房間的生命週期，並在多連接併發操作下保持狀態一致？
//
// 核心挑戰：
//   1. 狀態管理：房間有明確的狀態轉換（waiting → active → finished）
//   2. 併發控制：落子與斷線可能同時作用於同一房間
//   3. 回合裁定：落子順序、格子佔用、勝負判定全部伺服器端裁定
//   4. 資源回收：閒置房間自動關閉（避免內存洩漏）
//
// 設計方案：
//   ✅ 有限狀態機 - 規範狀態轉換
//   ✅ 房間級 RWMutex - 同房間的變更互斥，跨房間不相互阻塞
//   ✅ 廢棄標記（abandoned）- 斷線後的殘留房間不可再加入
//   ✅ 閒置掃描 - 超過閾值自動回收（見 manager.go）

// RoomStatus 房間狀態
//
// 有限狀態機設計：
//
//	waiting → active → finished
//	            ↓         ↓
//	        abandoned  abandoned（對手斷線）
//
// 狀態轉換規則：
//   - waiting → active：第二位玩家加入
//   - active → finished：連成一線或平局
//   - finished → active：restartGame 重置棋局
//   - 任何狀態 → abandoned：一方斷線後仍有一人留守
//
// 為什麼需要 abandoned 狀態？
//   斷線後只剩一人的房間在結構上與 waiting 無異（players 長度為 1），
//   若不標記，第三方可能中途加入一場已被放棄的對局。
//   廢棄房間不出現在大廳列表，也拒絕 joinRoom，直到被回收。
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"   // 等待第二位玩家
	StatusActive    RoomStatus = "active"    // 對局進行中
	StatusFinished  RoomStatus = "finished"  // 已分出勝負或平局
	StatusAbandoned RoomStatus = "abandoned" // 一方斷線，不可再加入
)

// Room 遊戲房間
//
// 系統設計考量：
//
//  1. 併發控制（RWMutex）：
//     同一房間的 makeMove 與 disconnect 若交錯執行，可能破壞 players
//     或使 turn 重複翻轉。房間級讀寫鎖把每個操作變成原子單位，
//     而不同房間的操作互不阻塞（鎖粒度 = 一個房間）。
//
//  2. 玩家順序（slice 而非 map）：
//     players 按加入順序排列，第一位永遠執 X。
//     雙人上限讓線性掃描比 map 更簡單也更快。
//
//  3. 資源管理（lastActivity）：
//     join / move / restart / ping 都會刷新最後活動時間，
//     閒置掃描據此回收房間。
type Room struct {
	ID        string
	CreatedAt time.Time

	mu           sync.RWMutex
	players      []string // session id，加入順序即符號順序（[0] 執 X）
	board        Board
	turn         Symbol
	winner       Symbol
	draw         bool
	status       RoomStatus
	expired      bool // 閒置回收已定案（見 Expire）
	lastActivity time.Time
}

// NewRoom 創建新房間，創建者自動成為 X 方
func NewRoom(id, sessionID string, now time.Time) *Room {
	return &Room{
		ID:           id,
		CreatedAt:    now,
		players:      []string{sessionID},
		turn:         SymbolX,
		status:       StatusWaiting,
		lastActivity: now,
	}
}

// Join 加入第二位玩家
//
// 狀態機驗證：
//   - abandoned 房間拒絕加入（對局已被放棄）
//   - 空房間拒絕加入：players 為空表示最後一人剛離開、
//     房間正被移出存儲，持有舊指針的併發 join 不得復活它
//   - 已被閒置回收標記的房間拒絕加入（見 Expire）
//   - 兩人滿員拒絕加入
//
// 成功後房間轉為 active，對局可以開始。
func (r *Room) Join(sessionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusAbandoned || r.expired {
		return ErrRoomAbandoned
	}
	if len(r.players) == 0 {
		return ErrRoomAbandoned
	}
	if len(r.players) >= 2 {
		return ErrRoomFull
	}

	r.players = append(r.players, sessionID)
	r.status = StatusActive
	r.lastActivity = now
	return nil
}

// ApplyMove 套用一次落子
//
// 回合裁定（全部伺服器端）：
//   - 對局已結束（有勝者或平局）→ 拒絕
//   - 格子已被佔用 → 拒絕
//   - 非當前回合的符號 → 拒絕
//
// 成功後翻轉回合並立即判定勝負；回傳的快照供閘道層廣播。
// 索引範圍由呼叫方先行檢查（ValidCell）。
func (r *Room) ApplyMove(cellIndex int, player Symbol, now time.Time) (GameUpdateData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.winner != SymbolNone || r.draw {
		return GameUpdateData{}, ErrIllegalMove
	}
	if r.board[cellIndex] != SymbolNone {
		return GameUpdateData{}, ErrIllegalMove
	}
	if player != r.turn {
		return GameUpdateData{}, ErrIllegalMove
	}

	r.board[cellIndex] = player
	r.turn = player.Opponent()
	r.lastActivity = now

	// 勝負判定
	if winner := r.board.Winner(); winner != SymbolNone {
		r.winner = winner
		r.status = StatusFinished
	} else if r.board.Full() {
		r.draw = true
		r.status = StatusFinished
	}

	return GameUpdateData{
		GameState:     r.board,
		CurrentPlayer: r.turn,
		LastMove:      LastMove{CellIndex: cellIndex, Player: player},
		Winner:        r.winner,
		Draw:          r.draw,
	}, nil
}

// Restart 重置棋局：清空棋盤、回合歸 X、清除勝負
//
// 只重置對局，不改變成員；廢棄房間保持廢棄（restart 不是復活手段）。
func (r *Room) Restart(now time.Time) GameRestartData {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.board = Board{}
	r.turn = SymbolX
	r.winner = SymbolNone
	r.draw = false
	if r.status == StatusFinished {
		r.status = StatusActive
	}
	r.lastActivity = now

	return GameRestartData{
		GameState:     r.board,
		CurrentPlayer: r.turn,
	}
}

// RemovePlayer 移除玩家（斷線處理）
//
// 回傳是否找到該玩家，以及移除後剩餘的 session 列表快照。
// 剩一人時房間轉為 abandoned：殘留的單人房不可被第三方加入。
func (r *Room) RemovePlayer(sessionID string) (found bool, remaining []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.Index(r.players, sessionID)
	if idx < 0 {
		return false, nil
	}

	r.players = slices.Delete(r.players, idx, idx+1)
	if len(r.players) == 1 {
		r.status = StatusAbandoned
	}

	return true, slices.Clone(r.players)
}

// Touch 刷新最後活動時間（keep-alive）
func (r *Room) Touch(now time.Time) {
	r.mu.Lock()
	r.lastActivity = now
	r.mu.Unlock()
}

// IdleSince 檢查房間是否自 cutoff 之前就沒有任何活動
func (r *Room) IdleSince(cutoff time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity.Before(cutoff)
}

// Expire 閒置判定與回收標記的原子結合
//
// 在寫鎖內判定並標記：自 cutoff 起無任何活動才回傳 true。
// 與 keep-alive 的 Touch 競爭同一把鎖，只有先到者生效——
// Touch 先到則活動時間已刷新、房間得救；標記先到則回收定案，
// 之後的 Join 一律被拒（見 Join），遲到的 Touch 改變不了結果。
// 拆成「先檢查再刪除」兩步會在中間丟失 keep-alive，所以不那樣做。
func (r *Room) Expire(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastActivity.Before(cutoff) {
		return false
	}
	r.expired = true
	return true
}

// Joinable 檢查房間是否可出現在大廳列表
//
// 條件：恰好一人等待中。滿員（active/finished）與廢棄房間都不列出。
func (r *Room) Joinable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status == StatusWaiting && len(r.players) == 1 && !r.expired
}

// Summary 大廳列表摘要
func (r *Room) Summary() RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomSummary{
		ID:        r.ID,
		Players:   len(r.players),
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
}

// Sessions 取得成員 session 快照（廣播收件人列表）
func (r *Room) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.players)
}

// State 取得棋盤與當前回合的快照
func (r *Room) State() (Board, Symbol) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.board, r.turn
}

// Status 取得房間狀態
func (r *Room) Status() RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Result 取得勝負結果（進行中為零值）
func (r *Room) Result() (winner Symbol, draw bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.winner, r.draw
}

// PlayerCount 取得玩家數量
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// LastActivity 取得最後活動時間
func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}
