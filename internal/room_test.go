package internal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/exercise-3/internal"
)

// playMoves 依序落子，要求每一步都成功
func playMoves(t *testing.T, room *internal.Room, moves []struct {
	cell   int
	player internal.Symbol
}) internal.GameUpdateData {
	t.Helper()
	var last internal.GameUpdateData
	for _, mv := range moves {
		update, err := room.ApplyMove(mv.cell, mv.player, time.Now())
		require.NoError(t, err, "move %v on cell %d", mv.player, mv.cell)
		last = update
	}
	return last
}

// activeRoom 創建一個兩人就位、對局進行中的房間
func activeRoom(t *testing.T) *internal.Room {
	t.Helper()
	room := internal.NewRoom("room_abc", "session_x", time.Now())
	require.NoError(t, room.Join("session_o", time.Now()))
	return room
}

// TestNewRoom 測試創建新房間
func TestNewRoom(t *testing.T) {
	now := time.Now()
	room := internal.NewRoom("room_abc", "session_x", now)

	require.NotNil(t, room)
	assert.Equal(t, "room_abc", room.ID)
	assert.Equal(t, internal.StatusWaiting, room.Status())
	assert.Equal(t, []string{"session_x"}, room.Sessions())

	board, turn := room.State()
	assert.Equal(t, internal.Board{}, board)
	assert.Equal(t, internal.SymbolX, turn)

	winner, draw := room.Result()
	assert.Equal(t, internal.SymbolNone, winner)
	assert.False(t, draw)
}

// TestRoom_Join 測試加入房間
func TestRoom_Join(t *testing.T) {
	tests := []struct {
		name          string
		setupRoom     func(t *testing.T) *internal.Room
		sessionID     string
		expectedError error
		validate      func(t *testing.T, room *internal.Room)
	}{
		{
			name: "second player starts the game",
			setupRoom: func(t *testing.T) *internal.Room {
				return internal.NewRoom("room_abc", "session_x", time.Now())
			},
			sessionID: "session_o",
			validate: func(t *testing.T, room *internal.Room) {
				assert.Equal(t, internal.StatusActive, room.Status())
				// 加入順序即符號順序：第一位執 X
				assert.Equal(t, []string{"session_x", "session_o"}, room.Sessions())
			},
		},
		{
			name: "full room rejects third player",
			setupRoom: func(t *testing.T) *internal.Room {
				return activeRoom(t)
			},
			sessionID:     "session_3",
			expectedError: internal.ErrRoomFull,
			validate: func(t *testing.T, room *internal.Room) {
				assert.Equal(t, 2, room.PlayerCount())
			},
		},
		{
			name: "abandoned room rejects rejoin",
			setupRoom: func(t *testing.T) *internal.Room {
				room := activeRoom(t)
				found, _ := room.RemovePlayer("session_o")
				require.True(t, found)
				return room
			},
			sessionID:     "session_3",
			expectedError: internal.ErrRoomAbandoned,
			validate: func(t *testing.T, room *internal.Room) {
				// 殘留的單人房不可被第三方佔據
				assert.Equal(t, internal.StatusAbandoned, room.Status())
				assert.Equal(t, 1, room.PlayerCount())
			},
		},
		{
			name: "emptied room rejects join",
			setupRoom: func(t *testing.T) *internal.Room {
				room := internal.NewRoom("room_abc", "session_x", time.Now())
				found, remaining := room.RemovePlayer("session_x")
				require.True(t, found)
				require.Empty(t, remaining)
				return room
			},
			sessionID:     "session_3",
			expectedError: internal.ErrRoomAbandoned,
			validate: func(t *testing.T, room *internal.Room) {
				// 最後一人離開後房間即將被拆除，舊指針上的 join 不得復活它
				assert.Equal(t, 0, room.PlayerCount())
				assert.NotEqual(t, internal.StatusActive, room.Status())
			},
		},
		{
			name: "expired room rejects join",
			setupRoom: func(t *testing.T) *internal.Room {
				room := internal.NewRoom("room_abc", "session_x", time.Now().Add(-time.Hour))
				require.True(t, room.Expire(time.Now().Add(-30*time.Minute)))
				return room
			},
			sessionID:     "session_3",
			expectedError: internal.ErrRoomAbandoned,
			validate: func(t *testing.T, room *internal.Room) {
				assert.Equal(t, 1, room.PlayerCount())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := tt.setupRoom(t)
			err := room.Join(tt.sessionID, time.Now())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			tt.validate(t, room)
		})
	}
}

// TestRoom_ApplyMove 測試落子裁定
func TestRoom_ApplyMove(t *testing.T) {
	tests := []struct {
		name      string
		setupRoom func(t *testing.T) *internal.Room
		cell      int
		player    internal.Symbol
		wantErr   bool
		validate  func(t *testing.T, room *internal.Room, update internal.GameUpdateData)
	}{
		{
			name:      "valid opening move flips turn",
			setupRoom: activeRoom,
			cell:      4,
			player:    internal.SymbolX,
			validate: func(t *testing.T, room *internal.Room, update internal.GameUpdateData) {
				assert.Equal(t, internal.SymbolX, update.GameState[4])
				assert.Equal(t, internal.SymbolO, update.CurrentPlayer)
				assert.Equal(t, internal.LastMove{CellIndex: 4, Player: internal.SymbolX}, update.LastMove)
				assert.Equal(t, internal.SymbolNone, update.Winner)
				assert.False(t, update.Draw)
			},
		},
		{
			name:      "out of turn move rejected",
			setupRoom: activeRoom,
			cell:      4,
			player:    internal.SymbolO, // 開局輪到 X
			wantErr:   true,
			validate: func(t *testing.T, room *internal.Room, _ internal.GameUpdateData) {
				board, turn := room.State()
				assert.Equal(t, internal.Board{}, board)
				assert.Equal(t, internal.SymbolX, turn)
			},
		},
		{
			name: "occupied cell rejected",
			setupRoom: func(t *testing.T) *internal.Room {
				room := activeRoom(t)
				_, err := room.ApplyMove(4, internal.SymbolX, time.Now())
				require.NoError(t, err)
				return room
			},
			cell:    4,
			player:  internal.SymbolO,
			wantErr: true,
			validate: func(t *testing.T, room *internal.Room, _ internal.GameUpdateData) {
				// 被拒絕的落子不得翻轉回合
				board, turn := room.State()
				assert.Equal(t, internal.SymbolX, board[4])
				assert.Equal(t, internal.SymbolO, turn)
			},
		},
		{
			name: "no moves after a win",
			setupRoom: func(t *testing.T) *internal.Room {
				room := activeRoom(t)
				playMoves(t, room, []struct {
					cell   int
					player internal.Symbol
				}{
					{0, internal.SymbolX}, {3, internal.SymbolO},
					{1, internal.SymbolX}, {4, internal.SymbolO},
					{2, internal.SymbolX}, // X 連成頂行
				})
				return room
			},
			cell:    5,
			player:  internal.SymbolO,
			wantErr: true,
			validate: func(t *testing.T, room *internal.Room, _ internal.GameUpdateData) {
				winner, draw := room.Result()
				assert.Equal(t, internal.SymbolX, winner)
				assert.False(t, draw)
				assert.Equal(t, internal.StatusFinished, room.Status())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := tt.setupRoom(t)
			update, err := room.ApplyMove(tt.cell, tt.player, time.Now())

			if tt.wantErr {
				assert.ErrorIs(t, err, internal.ErrIllegalMove)
			} else {
				require.NoError(t, err)
			}
			tt.validate(t, room, update)
		})
	}
}

// TestRoom_WinDetection 測試勝利後的廣播內容
func TestRoom_WinDetection(t *testing.T) {
	room := activeRoom(t)

	last := playMoves(t, room, []struct {
		cell   int
		player internal.Symbol
	}{
		{0, internal.SymbolX}, {3, internal.SymbolO},
		{4, internal.SymbolX}, {5, internal.SymbolO},
		{8, internal.SymbolX}, // X 連成主對角線
	})

	assert.Equal(t, internal.SymbolX, last.Winner)
	assert.False(t, last.Draw)
	assert.Equal(t, internal.StatusFinished, room.Status())
}

// TestRoom_DrawDetection 測試平局：棋盤填滿且無連線
func TestRoom_DrawDetection(t *testing.T) {
	room := activeRoom(t)

	// X O X
	// X O O
	// O X X
	last := playMoves(t, room, []struct {
		cell   int
		player internal.Symbol
	}{
		{0, internal.SymbolX}, {1, internal.SymbolO},
		{2, internal.SymbolX}, {4, internal.SymbolO},
		{3, internal.SymbolX}, {5, internal.SymbolO},
		{7, internal.SymbolX}, {6, internal.SymbolO},
		{8, internal.SymbolX},
	})

	assert.True(t, last.Draw)
	assert.Equal(t, internal.SymbolNone, last.Winner)
	assert.Equal(t, internal.StatusFinished, room.Status())

	// 平局後也不能再落子
	_, err := room.ApplyMove(0, internal.SymbolO, time.Now())
	assert.ErrorIs(t, err, internal.ErrIllegalMove)
}

// TestRoom_Restart 測試重置棋局
func TestRoom_Restart(t *testing.T) {
	room := activeRoom(t)

	playMoves(t, room, []struct {
		cell   int
		player internal.Symbol
	}{
		{0, internal.SymbolX}, {3, internal.SymbolO},
		{1, internal.SymbolX}, {4, internal.SymbolO},
		{2, internal.SymbolX},
	})
	require.Equal(t, internal.StatusFinished, room.Status())

	restart := room.Restart(time.Now())

	// 不論先前勝負，一律回到空棋盤、X 先手
	assert.Equal(t, internal.Board{}, restart.GameState)
	assert.Equal(t, internal.SymbolX, restart.CurrentPlayer)
	assert.Equal(t, internal.StatusActive, room.Status())

	winner, draw := room.Result()
	assert.Equal(t, internal.SymbolNone, winner)
	assert.False(t, draw)

	// 重置後可以正常落子
	_, err := room.ApplyMove(8, internal.SymbolX, time.Now())
	assert.NoError(t, err)
}

// TestRoom_RemovePlayer 測試移除玩家
func TestRoom_RemovePlayer(t *testing.T) {
	t.Run("remove one of two marks room abandoned", func(t *testing.T) {
		room := activeRoom(t)

		found, remaining := room.RemovePlayer("session_x")
		assert.True(t, found)
		assert.Equal(t, []string{"session_o"}, remaining)
		assert.Equal(t, internal.StatusAbandoned, room.Status())
	})

	t.Run("remove last player leaves empty room", func(t *testing.T) {
		room := internal.NewRoom("room_abc", "session_x", time.Now())

		found, remaining := room.RemovePlayer("session_x")
		assert.True(t, found)
		assert.Empty(t, remaining)
	})

	t.Run("unknown session not found", func(t *testing.T) {
		room := activeRoom(t)

		found, _ := room.RemovePlayer("session_unknown")
		assert.False(t, found)
		assert.Equal(t, 2, room.PlayerCount())
	})
}

// TestRoom_Joinable 測試大廳列表資格
func TestRoom_Joinable(t *testing.T) {
	room := internal.NewRoom("room_abc", "session_x", time.Now())
	assert.True(t, room.Joinable())

	require.NoError(t, room.Join("session_o", time.Now()))
	assert.False(t, room.Joinable(), "滿員房間不列出")

	found, _ := room.RemovePlayer("session_o")
	require.True(t, found)
	assert.False(t, room.Joinable(), "廢棄房間不列出")
}

// TestRoom_IdleSince 測試閒置判定
func TestRoom_IdleSince(t *testing.T) {
	room := internal.NewRoom("room_abc", "session_x", time.Now())

	assert.False(t, room.IdleSince(time.Now().Add(-time.Minute)))

	room.Touch(time.Now().Add(-time.Hour))
	assert.True(t, room.IdleSince(time.Now().Add(-30*time.Minute)))

	// keep-alive 重新計時
	room.Touch(time.Now())
	assert.False(t, room.IdleSince(time.Now().Add(-30*time.Minute)))
}

// TestRoom_Expire 測試回收定案與 keep-alive 的排序
func TestRoom_Expire(t *testing.T) {
	t.Run("active room survives", func(t *testing.T) {
		room := internal.NewRoom("room_abc", "session_x", time.Now())
		assert.False(t, room.Expire(time.Now().Add(-30*time.Minute)))

		// 未定案的房間照常可加入
		assert.NoError(t, room.Join("session_o", time.Now()))
	})

	t.Run("touch before expire saves the room", func(t *testing.T) {
		room := internal.NewRoom("room_abc", "session_x", time.Now().Add(-time.Hour))

		// keep-alive 先抵達：判定時活動時間已刷新，房間得救
		room.Touch(time.Now())
		assert.False(t, room.Expire(time.Now().Add(-30*time.Minute)))
	})

	t.Run("touch after expire cannot revive", func(t *testing.T) {
		room := internal.NewRoom("room_abc", "session_x", time.Now().Add(-time.Hour))
		require.True(t, room.Expire(time.Now().Add(-30*time.Minute)))

		// 回收已定案：遲到的 keep-alive 改變不了加入資格
		room.Touch(time.Now())
		err := room.Join("session_o", time.Now())
		assert.ErrorIs(t, err, internal.ErrRoomAbandoned)
	})
}
