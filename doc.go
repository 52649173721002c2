// Package exercise3 實現了一個即時雙人井字棋房間服務器。
//
// 提供基於 WebSocket 的多房間對弈協調層，包含以下核心功能：
//
// 房間生命週期
//
// 房間由玩家自選的字串 ID 標識，完全保存在內存中（無持久化）：
//   - 創建者自動執 X，等待對手
//   - 第二位玩家加入後執 O，對局立即開始（X 先手）
//   - 一方斷線後房間進入廢棄狀態，不可再被加入
//   - 最後一人離開或閒置超過閾值時房間被回收
//
// 伺服器端裁定
//
// 棋盤狀態、回合歸屬、勝負判定全部由伺服器持有與裁定：
//   - 落子必須輪到自己且目標格為空
//   - 連成一線即勝，棋盤填滿無勝者為平局
//   - 對局結束後棋盤凍結，restartGame 重新開局
//   - 非法落子靜默丟棄（不回應、不廣播）
//
// 併發安全設計
//
// 採用了分層的併發控制策略：
//   - 房間級 RWMutex：同房間事件互斥，跨房間互不阻塞
//   - 封裝的 Store：映射自身由單一互斥鎖保護，Manager 是唯一寫入者
//   - 緩衝 channel 扇出：廣播不阻塞事件處理路徑
//   - panic 恢復：單一房間的壞狀態不影響其他房間
//
// 通訊協議
//
// 雙向皆為 JSON 信封 {"event": <名稱>, "data": <內容>}：
//   - 入站：createRoom / joinRoom / makeMove / restartGame / getRooms / ping
//   - 出站：roomCreated / roomJoined / gameStart / gameUpdate / gameRestart /
//     roomsList / playerDisconnected / roomClosed / error / pong
//   - WebSocket 原生 Ping/Pong 心跳檢測死連接（54s/60s）
//
// 使用範例
//
// 啟動服務器：
//
//	manager := internal.NewManager(reapInterval, idleThreshold, logger)
//	hub := internal.NewHub(manager, logger)
//	handler := internal.NewHandler(manager, hub, "/tictactoe", 4000, logger)
//	log.Fatal(http.ListenAndServe(":4000", handler.Routes()))
//
// 架構設計
//
// 系統採用分層架構設計：
//   - Hub 層：連接註冊、事件分發、出站投遞
//   - Manager 層：房間業務邏輯與廣播組裝
//   - Store 層：房間映射的唯一真實來源
//   - Room 層：單一房間的狀態機與回合裁定
//
// 每層都有明確的職責邊界：Hub 從不改寫房間狀態，
// Manager 是 Store 的唯一寫入者。
//
// 監控介面
//
// 應用掛載在固定子路徑下（預設 /tictactoe），提供唯讀端點：
//   - /health：存活狀態、活躍連接數與房間數
//   - /stats：進程記憶體 / CPU 用量與房間統計
//   - /config：客戶端握手配置（WebSocket 端點位置）
//
// 配置選項
//
// 支援多種運行時配置（config.yaml + 環境變數 + 命令行參數）：
//   - -config：配置檔路徑（預設 config.yaml）
//   - -port：服務監聽端口（覆蓋配置檔；環境變數 PORT 亦可）
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：日誌格式（text/json）
package exercise3
