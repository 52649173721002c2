package internal

import "encoding/json"

// 線路協議：雙向皆為 JSON 信封 {"event": <名稱>, "data": <內容>}。
// 時間戳一律使用 Unix 毫秒。
//
// 設計重點：入站事件使用封閉枚舉 + 單一分發點（websocket.go 的
// dispatch switch），而非依事件名註冊回調。新增事件時 switch
// 缺少分支會在審查時一目了然。

// EventType 入站事件類型（封閉集合）
type EventType string

const (
	EventCreateRoom  EventType = "createRoom"
	EventJoinRoom    EventType = "joinRoom"
	EventMakeMove    EventType = "makeMove"
	EventRestartGame EventType = "restartGame"
	EventGetRooms    EventType = "getRooms"
	EventPing        EventType = "ping"
)

// 出站事件名稱
const (
	EventRoomCreated        = "roomCreated"
	EventRoomJoined         = "roomJoined"
	EventGameStart          = "gameStart"
	EventGameUpdate         = "gameUpdate"
	EventGameRestart        = "gameRestart"
	EventRoomsList          = "roomsList"
	EventPlayerDisconnected = "playerDisconnected"
	EventRoomClosed         = "roomClosed"
	EventError              = "error"
	EventPong               = "pong"
)

// InboundMessage 入站信封。Data 延遲解析：
// 先讀事件名，再依類型解出對應的 payload 結構。
type InboundMessage struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event 出站信封
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

// 入站 payload

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type MoveRequest struct {
	RoomID    string `json:"roomId"`
	CellIndex int    `json:"cellIndex"`
	Player    Symbol `json:"player"`
}

type PingRequest struct {
	RoomID string `json:"roomId,omitempty"`
}

// 出站 payload

type RoomAssignment struct {
	RoomID string `json:"roomId"`
	Player Symbol `json:"player"`
}

type GameStartData struct {
	RoomID        string `json:"roomId"`
	GameState     Board  `json:"gameState"`
	CurrentPlayer Symbol `json:"currentPlayer"`
}

type LastMove struct {
	CellIndex int    `json:"cellIndex"`
	Player    Symbol `json:"player"`
}

// GameUpdateData 落子後的全量狀態。
// Winner/Draw 為伺服器端勝負判定結果，棋局進行中為零值。
type GameUpdateData struct {
	GameState     Board    `json:"gameState"`
	CurrentPlayer Symbol   `json:"currentPlayer"`
	LastMove      LastMove `json:"lastMove"`
	Winner        Symbol   `json:"winner,omitempty"`
	Draw          bool     `json:"draw,omitempty"`
}

type GameRestartData struct {
	GameState     Board  `json:"gameState"`
	CurrentPlayer Symbol `json:"currentPlayer"`
}

// RoomSummary 大廳列表中的單一房間摘要
type RoomSummary struct {
	ID        string `json:"id"`
	Players   int    `json:"players"`
	CreatedAt int64  `json:"createdAt"` // Unix 毫秒
}

type RoomClosedData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type PongData struct {
	Timestamp int64 `json:"timestamp"` // Unix 毫秒
}

// Sender 出站事件投遞介面。
//
// Manager 計算「誰該收到什麼」（單播給請求者、廣播給房間成員），
// 閘道層只負責把事件送到指定的 session 連接上。
// 投遞是盡力而為：連接已斷開或緩衝滿時事件被丟棄。
type Sender interface {
	Send(sessionIDs []string, event Event)
}

// nopSender 未掛載閘道時的空實現（單元測試用）
type nopSender struct{}

func (nopSender) Send([]string, Event) {}
