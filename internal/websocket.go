package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何在持久雙向連接上路由對局事件，並保證斷線恰好通知一次？
//
// 核心挑戰：
//   1. 連接註冊：每個連接分配穩定的 session id，作為玩家的唯一身份
//   2. 事件分發：入站 JSON 事件解析為封閉枚舉，經單一 switch 進入 Manager
//   3. 心跳機制：檢測死連接（網絡異常、瀏覽器崩潰）
//   4. 斷線語義：連接結束（無論正常或異常）恰好觸發一次 Disconnect
//
// 設計方案：
//   ✅ Hub 模式 - 集中管理所有連接（sessionID → Connection）
//   ✅ uuid session id - 連接建立時分配，生命週期內不變
//   ✅ Ping/Pong 心跳 - 檢測死連接（54s/60s）
//   ✅ 緩衝 channel 發送 - 廣播不阻塞業務邏輯

// Hub WebSocket 連接中心：連接註冊表 + 傳輸閘道
//
// 職責邊界：
//   - 入站：解析信封、按事件類型分發給 Manager
//   - 出站：實現 Sender 介面，把事件送到指定 session 的連接上
//   - Hub 從不直接改寫房間狀態（Manager 是唯一寫入者）
type Hub struct {
	manager     *Manager
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	connections map[string]*Connection // sessionID -> Connection
	mu          sync.RWMutex
}

// Connection 單一 WebSocket 連接
type Connection struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
	closeOnce sync.Once // 確保 channel 只關閉一次
}

// NewHub 創建 WebSocket Hub 並把自己掛載為 Manager 的投遞者
func NewHub(manager *Manager, logger *slog.Logger) *Hub {
	hub := &Hub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 原始部署對所有來源開放（透過反向代理對外）
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
	}

	manager.AttachSender(hub)
	return hub
}

// ServeWS 處理 WebSocket 連接升級
//
// 每個連接分配一個不透明的 uuid session id。身份僅存在於連接的
// 生命週期內：斷線重連會拿到全新的 id（沒有斷線重入座位的機制）。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	connection := &Connection{
		SessionID: uuid.NewString(),
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Hub:       hub,
	}

	hub.register(connection)

	go connection.writePump()
	go connection.readPump()

	hub.logger.Info("WebSocket 連接建立",
		"session_id", connection.SessionID,
		"remote_addr", r.RemoteAddr)
}

// register 註冊連接
func (hub *Hub) register(conn *Connection) {
	hub.mu.Lock()
	hub.connections[conn.SessionID] = conn
	hub.mu.Unlock()
}

// unregister 取消註冊連接
//
// 回傳是否真的移除了此連接：readPump 與 Stop 可能競爭同一連接，
// 只有贏家負責觸發 Manager.Disconnect（恰好一次的保證在此）。
func (hub *Hub) unregister(conn *Connection) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	actual, exists := hub.connections[conn.SessionID]
	if !exists || actual != conn {
		return false
	}

	delete(hub.connections, conn.SessionID)
	conn.closeOnce.Do(func() {
		close(conn.Send)
	})
	return true
}

// Send 實現 Sender：把事件投遞給指定的 session 連接
//
// 序列化一次、扇出多次。盡力而為：連接不存在（已斷開）或
// 發送緩衝滿（慢客戶端）時丟棄該收件人，不阻塞事件處理路徑。
func (hub *Hub) Send(sessionIDs []string, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "error", err, "event", event.Type)
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, sessionID := range sessionIDs {
		conn, exists := hub.connections[sessionID]
		if !exists {
			continue
		}
		select {
		case conn.Send <- message:
		default:
			hub.logger.Warn("連接發送緩衝滿，事件被丟棄",
				"session_id", sessionID,
				"event", event.Type)
		}
	}
}

// SessionCount 取得活躍連接數
func (hub *Hub) SessionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.connections)
}

// Stop 停止 Hub，關閉所有連接
func (hub *Hub) Stop() {
	hub.mu.Lock()
	for _, conn := range hub.connections {
		conn.closeOnce.Do(func() {
			close(conn.Send)
		})
		conn.Conn.Close()
	}
	hub.connections = make(map[string]*Connection)
	hub.mu.Unlock()

	hub.logger.Info("WebSocket Hub 已停止")
}

// readPump 讀取客戶端消息
//
// 心跳機制（讀取端）：60 秒內沒有任何消息（包括 Pong）就關閉連接，
// 配合 writePump 的 54 秒 Ping（留 6 秒余量給網絡傳輸）。
//
// 連接結束（正常關閉、超時、異常）統一走 defer：
// 取消註冊成功者負責通知 Manager 處理斷線（恰好一次）。
func (c *Connection) readPump() {
	defer func() {
		if c.Hub.unregister(c) {
			c.Hub.manager.Disconnect(c.SessionID)
			c.Hub.logger.Info("WebSocket 連接關閉", "session_id", c.SessionID)
		}
		c.Conn.Close()
	}()

	if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.Hub.logger.Error("設置讀取期限失敗", "error", err)
	}

	// Pong 處理器（收到 Pong 重置超時）
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.Hub.logger.Error("設置讀取期限失敗", "error", err)
		}
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket 讀取錯誤",
					"error", err,
					"session_id", c.SessionID)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.dispatch(message)
		}
	}
}

// writePump 寫入消息到客戶端
//
// 心跳機制（發送端）：每 54 秒發送 Ping。為什麼不是整數？
// 避開代理服務器常見的 60 秒超時閾值，留 6 秒余量。
func (c *Connection) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// Hub 關閉了通道，嘗試優雅關閉
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch 入站事件分發：封閉枚舉 + 單一決策點
//
// 事件處理中的 panic 在此恢復：一個房間的壞狀態不能拖垮整個進程，
// 其他房間與閒置掃描照常運作。
func (c *Connection) dispatch(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.Hub.logger.Error("處理事件時發生 panic",
				"panic", r,
				"session_id", c.SessionID)
		}
	}()

	var msg InboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError("無效的消息格式")
		return
	}

	manager := c.Hub.manager

	switch msg.Event {
	case EventCreateRoom:
		req, ok := c.decodeRoomRequest(msg.Data)
		if !ok {
			return
		}
		if err := manager.CreateRoom(req.RoomID, c.SessionID); err != nil {
			c.sendError(err.Error())
		}

	case EventJoinRoom:
		req, ok := c.decodeRoomRequest(msg.Data)
		if !ok {
			return
		}
		if err := manager.JoinRoom(req.RoomID, c.SessionID); err != nil {
			c.sendError(err.Error())
		}

	case EventMakeMove:
		var req MoveRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("無效的請求格式")
			return
		}
		// 非法落子由 Manager 靜默丟棄（不回應、不廣播）
		manager.MakeMove(req.RoomID, req.CellIndex, req.Player)

	case EventRestartGame:
		req, ok := c.decodeRoomRequest(msg.Data)
		if !ok {
			return
		}
		manager.RestartGame(req.RoomID)

	case EventGetRooms:
		manager.GetRooms(c.SessionID)

	case EventPing:
		var req PingRequest
		if len(msg.Data) > 0 {
			// ping 可以不帶 data；帶了但格式錯誤也照常回 pong
			_ = json.Unmarshal(msg.Data, &req)
		}
		manager.KeepAlive(c.SessionID, req.RoomID)

	default:
		c.Hub.logger.Debug("收到未知事件類型",
			"event", string(msg.Event),
			"session_id", c.SessionID)
	}
}

// decodeRoomRequest 解析只帶房間 ID 的請求
func (c *Connection) decodeRoomRequest(data json.RawMessage) (RoomRequest, bool) {
	var req RoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		c.sendError("無效的請求格式")
		return RoomRequest{}, false
	}
	return req, true
}

// sendError 回傳錯誤事件給本連接（從不廣播給整個房間）
func (c *Connection) sendError(message string) {
	c.Hub.Send([]string{c.SessionID}, Event{
		Type: EventError,
		Data: ErrorData{Message: message},
	})
}
