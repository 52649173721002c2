package internal

import "errors"

// 錯誤分類：
//   除 ErrIllegalMove 外，所有錯誤只回傳給發起請求的連接（error 事件），
//   從不廣播給整個房間。非法落子依照原始設計靜默丟棄（見 manager.go）。
//
// 使用哨兵錯誤而非字串比對：
//   閘道層用 errors.Is 判斷分類，避免依賴錯誤訊息前綴。
var (
	ErrRoomExists    = errors.New("房間已存在")
	ErrRoomNotFound  = errors.New("房間不存在")
	ErrRoomFull      = errors.New("房間已滿")
	ErrRoomAbandoned = errors.New("對手已離開，房間不可加入")
	ErrIllegalMove   = errors.New("非法落子")
)
