package internal_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/exercise-3/internal"
)

// TestStore_CreateAndGet 測試創建與查詢
func TestStore_CreateAndGet(t *testing.T) {
	store := internal.NewStore()
	now := time.Now()

	room, err := store.Create("room_abc", "session_1", now)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, "room_abc", room.ID)
	assert.Equal(t, internal.StatusWaiting, room.Status())
	assert.Equal(t, 1, room.PlayerCount())

	got, err := store.Get("room_abc")
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)
}

// TestStore_CreateDuplicate 測試重複 ID：同名房間不能創建兩次
func TestStore_CreateDuplicate(t *testing.T) {
	store := internal.NewStore()

	_, err := store.Create("room_abc", "session_1", time.Now())
	require.NoError(t, err)

	_, err = store.Create("room_abc", "session_2", time.Now())
	assert.ErrorIs(t, err, internal.ErrRoomExists)

	// 刪除後同名 ID 可以重新使用
	store.Delete("room_abc")
	_, err = store.Create("room_abc", "session_2", time.Now())
	assert.NoError(t, err)
}

// TestStore_Delete 測試刪除（含不存在的 ID）
func TestStore_Delete(t *testing.T) {
	store := internal.NewStore()

	_, err := store.Create("room_abc", "session_1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count())

	store.Delete("room_abc")
	assert.Equal(t, 0, store.Count())

	// 不存在的 ID 為 no-op
	store.Delete("missing")
	assert.Equal(t, 0, store.Count())
}

// TestStore_List 測試列舉快照
func TestStore_List(t *testing.T) {
	store := internal.NewStore()

	for i := 0; i < 5; i++ {
		_, err := store.Create(fmt.Sprintf("room_%d", i), "session_1", time.Now())
		require.NoError(t, err)
	}

	rooms := store.List()
	assert.Len(t, rooms, 5)

	seen := make(map[string]bool)
	for _, room := range rooms {
		seen[room.ID] = true
	}
	assert.Len(t, seen, 5)
}

// TestStore_ConcurrentCreateSameID 測試併發創建同名房間：恰好一個成功
func TestStore_ConcurrentCreateSameID(t *testing.T) {
	store := internal.NewStore()

	const goroutines = 50
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successCount int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := store.Create("contested", fmt.Sprintf("session_%d", id), time.Now()); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 1, successCount)
	assert.Equal(t, 1, store.Count())
}
