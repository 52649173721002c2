package internal

import (
	"sync"
	"time"
)

// Store 房間存儲：roomID → Room 的唯一真實來源
//
// 系統設計考量：
//
//  1. 封裝而非全域表：
//     原始設計用一張全域可變表保存所有房間，任何代碼都能直接改寫。
//     這裡把表封裝在 Store 內，寫入路徑只剩 Create / Delete，
//     Manager 是唯一的呼叫者。
//
//  2. 鎖的分工：
//     Store 的互斥鎖只保護映射本身（增刪查列舉）；
//     房間內容的變更由各房間自己的 RWMutex 保護（見 room.go）。
//     兩層鎖從不嵌套持有，沒有死鎖順序問題。
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore 創建空的房間存儲
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// Get 查詢房間，不存在回傳 ErrRoomNotFound
func (s *Store) Get(roomID string) (*Room, error) {
	s.mu.RLock()
	room, exists := s.rooms[roomID]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Create 創建房間，ID 已被佔用回傳 ErrRoomExists
//
// 查重與寫入在同一臨界區內完成：兩個連接同時創建同名房間時，
// 恰好一個成功。
func (s *Store) Create(roomID, sessionID string, now time.Time) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID]; exists {
		return nil, ErrRoomExists
	}

	room := NewRoom(roomID, sessionID, now)
	s.rooms[roomID] = room
	return room, nil
}

// Delete 刪除房間（不存在時為 no-op）
func (s *Store) Delete(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
}

// List 取得所有房間的快照
//
// 回傳 slice 副本：呼叫方（掃描、列表）在鎖外逐一檢視房間，
// 不會長時間持有存儲鎖。
func (s *Store) List() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Count 取得房間數量
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
