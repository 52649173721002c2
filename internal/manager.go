package internal

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// 預設值：閒置超過 30 分鐘的房間由背景掃描回收，掃描間隔同為 30 分鐘。
const (
	DefaultReapInterval  = 30 * time.Minute
	DefaultIdleThreshold = 30 * time.Minute
)

// Manager 房間管理器：所有客戶端事件的業務邏輯入口
//
// 職責邊界：
//   - Manager 是 Store 的唯一寫入者
//   - 所有對局事件（roomCreated / gameStart / gameUpdate ...）
//     由 Manager 組裝並透過 Sender 投遞；閘道層只負責傳輸
//   - 錯誤以哨兵值回傳，由閘道層轉成 error 事件回給請求者
//
// 併發模型：
//   每個操作恰好觸及一個房間（disconnect 與閒置掃描除外，
//   它們逐一鎖定房間快照中的每個房間）。房間級鎖保證同房間
//   事件的原子性，達到與單線程事件循環等價的效果。
type Manager struct {
	store  *Store
	logger *slog.Logger

	senderMu sync.RWMutex
	sender   Sender

	reapInterval  time.Duration
	idleThreshold time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager 創建房間管理器並啟動閒置掃描
func NewManager(reapInterval, idleThreshold time.Duration, logger *slog.Logger) *Manager {
	if reapInterval <= 0 {
		reapInterval = DefaultReapInterval
	}
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}

	m := &Manager{
		store:         NewStore(),
		logger:        logger,
		sender:        nopSender{},
		reapInterval:  reapInterval,
		idleThreshold: idleThreshold,
		stopCh:        make(chan struct{}),
	}

	m.wg.Add(1)
	go m.reapLoop()

	return m
}

// AttachSender 掛載出站投遞者（WebSocket Hub）
//
// 必須在開始接受連接之前呼叫；未掛載時事件被靜默丟棄（單元測試場景）。
func (m *Manager) AttachSender(s Sender) {
	m.senderMu.Lock()
	m.sender = s
	m.senderMu.Unlock()
}

func (m *Manager) send(sessionIDs []string, event Event) {
	m.senderMu.RLock()
	s := m.sender
	m.senderMu.RUnlock()
	s.Send(sessionIDs, event)
}

// CreateRoom 創建房間
//
// 房間 ID 由客戶端指定（對局雙方用它互相找到對方）。
// ID 已被佔用時回傳 ErrRoomExists，只通知請求者。
// 創建者自動成為 X 方並等待對手。
func (m *Manager) CreateRoom(roomID, sessionID string) error {
	room, err := m.store.Create(roomID, sessionID, time.Now())
	if err != nil {
		return err
	}

	m.logger.Info("房間已創建",
		"room_id", roomID,
		"session_id", sessionID,
		"total_rooms", m.store.Count())

	m.send([]string{sessionID}, Event{
		Type: EventRoomCreated,
		Data: RoomAssignment{RoomID: room.ID, Player: SymbolX},
	})

	return nil
}

// JoinRoom 加入房間
//
// 成功後加入者執 O，先單播 roomJoined 給請求者，
// 再向雙方廣播 gameStart（開局永遠由 X 先手）。
func (m *Manager) JoinRoom(roomID, sessionID string) error {
	room, err := m.store.Get(roomID)
	if err != nil {
		return err
	}

	if err := room.Join(sessionID, time.Now()); err != nil {
		return err
	}

	m.logger.Info("玩家加入房間",
		"room_id", roomID,
		"session_id", sessionID)

	m.send([]string{sessionID}, Event{
		Type: EventRoomJoined,
		Data: RoomAssignment{RoomID: room.ID, Player: SymbolO},
	})

	board, turn := room.State()
	m.send(room.Sessions(), Event{
		Type: EventGameStart,
		Data: GameStartData{RoomID: room.ID, GameState: board, CurrentPlayer: turn},
	})

	return nil
}

// MakeMove 處理落子
//
// 非法落子（房間不存在、索引越界、格子已佔用、非當前回合、對局已結束）
// 一律靜默丟棄：不回應、不廣播。伺服器不替過期或惡意的請求背書，
// 客戶端永遠以下一次 gameUpdate 的廣播為準。只在 debug 級別留下記錄。
func (m *Manager) MakeMove(roomID string, cellIndex int, player Symbol) {
	room, err := m.store.Get(roomID)
	if err != nil {
		m.logger.Debug("落子被忽略：房間不存在", "room_id", roomID)
		return
	}

	if !ValidCell(cellIndex) {
		m.logger.Debug("落子被忽略：索引越界",
			"room_id", roomID,
			"cell_index", cellIndex)
		return
	}

	update, err := room.ApplyMove(cellIndex, player, time.Now())
	if err != nil {
		m.logger.Debug("落子被忽略",
			"room_id", roomID,
			"cell_index", cellIndex,
			"player", string(player))
		return
	}

	if update.Winner != SymbolNone || update.Draw {
		m.logger.Info("對局結束",
			"room_id", roomID,
			"winner", string(update.Winner),
			"draw", update.Draw)
	}

	m.send(room.Sessions(), Event{
		Type: EventGameUpdate,
		Data: update,
	})
}

// RestartGame 重置對局
//
// 房間不存在時為 no-op（原始設計如此：重啟一個已消失的房間沒有意義）。
func (m *Manager) RestartGame(roomID string) {
	room, err := m.store.Get(roomID)
	if err != nil {
		return
	}

	restart := room.Restart(time.Now())

	m.logger.Info("對局已重置", "room_id", roomID)

	m.send(room.Sessions(), Event{
		Type: EventGameRestart,
		Data: restart,
	})
}

// GetRooms 回傳大廳列表給請求者
//
// 只列出恰好一人等待中的房間；滿員與廢棄房間都省略。
func (m *Manager) GetRooms(sessionID string) {
	available := m.AvailableRooms()
	m.send([]string{sessionID}, Event{
		Type: EventRoomsList,
		Data: available,
	})
}

// AvailableRooms 收集可加入的房間摘要
func (m *Manager) AvailableRooms() map[string]RoomSummary {
	available := make(map[string]RoomSummary)
	for _, room := range m.store.List() {
		if room.Joinable() {
			available[room.ID] = room.Summary()
		}
	}
	return available
}

// KeepAlive 處理心跳
//
// 帶房間 ID 且房間存在時刷新其活動時間；
// 無論如何都回覆帶伺服器時間戳的 pong（客戶端以此確認連接存活）。
func (m *Manager) KeepAlive(sessionID, roomID string) {
	if roomID != "" {
		if room, err := m.store.Get(roomID); err == nil {
			room.Touch(time.Now())
		}
	}

	m.send([]string{sessionID}, Event{
		Type: EventPong,
		Data: PongData{Timestamp: time.Now().UnixMilli()},
	})
}

// Disconnect 處理連接終止
//
// 連接與房間的關聯是隱式的（哪個房間的 players 含此 session，
// 它就屬於哪個房間），所以掃描全部房間：
//   - 最後一人離開 → 刪除房間
//   - 仍有一人留守 → 房間轉為 abandoned（見 room.go），
//     並向留守者廣播 playerDisconnected；房間等待閒置回收
func (m *Manager) Disconnect(sessionID string) {
	for _, room := range m.store.List() {
		found, remaining := room.RemovePlayer(sessionID)
		if !found {
			continue
		}

		if len(remaining) == 0 {
			m.store.Delete(room.ID)
			m.logger.Info("房間已刪除（最後一人離開）",
				"room_id", room.ID,
				"session_id", sessionID)
			continue
		}

		m.logger.Info("玩家斷線，房間進入廢棄狀態",
			"room_id", room.ID,
			"session_id", sessionID)

		m.send(remaining, Event{
			Type: EventPlayerDisconnected,
			Data: nil,
		})
	}
}

// GetRoom 查詢房間
func (m *Manager) GetRoom(roomID string) (*Room, error) {
	return m.store.Get(roomID)
}

// reapLoop 閒置掃描循環
func (m *Manager) reapLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Reap()
		case <-m.stopCh:
			return
		}
	}
}

// Reap 回收閒置房間（公開方法供測試使用）
//
// 回收決定由 Room.Expire 在房間寫鎖內一次定案：判定閒置的同時
// 打上回收標記，與掃描中途抵達的 keep-alive 嚴格排序（Touch 先到
// 則房間得救，標記先到則遲到的 ping 不再救回）。定案後先向房內
// 連接廣播 roomClosed，再從存儲刪除。
func (m *Manager) Reap() {
	cutoff := time.Now().Add(-m.idleThreshold)

	for _, room := range m.store.List() {
		if !room.Expire(cutoff) {
			continue
		}

		m.send(room.Sessions(), Event{
			Type: EventRoomClosed,
			Data: RoomClosedData{Message: "房間因閒置過久已關閉"},
		})

		m.store.Delete(room.ID)
		m.logger.Info("房間已閒置回收", "room_id", room.ID)
	}
}

// Stats 統計資訊（health / stats 端點用）
func (m *Manager) Stats() map[string]any {
	rooms := m.store.List()

	statusCount := make(map[RoomStatus]int)
	totalPlayers := 0
	for _, room := range rooms {
		statusCount[room.Status()]++
		totalPlayers += room.PlayerCount()
	}

	return map[string]any{
		"total_rooms":   len(rooms),
		"total_players": totalPlayers,
		"by_status":     statusCount,
	}
}

// RoomCount 取得房間數量
func (m *Manager) RoomCount() int {
	return m.store.Count()
}

// Stop 停止管理器（停掉閒置掃描）
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("房間管理器已停止")
}

// IsClientError 判斷錯誤是否屬於應回報給請求者的分類錯誤
func IsClientError(err error) bool {
	return errors.Is(err, ErrRoomExists) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrRoomAbandoned)
}
