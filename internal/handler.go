package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Handler HTTP 請求處理器
//
// 輔助性的唯讀介面：健康檢查、進程統計、客戶端握手配置、靜態資源。
// 所有對局操作都走 WebSocket（見 websocket.go），這裡從不改寫房間狀態。
type Handler struct {
	manager   *Manager
	hub       *Hub
	logger    *slog.Logger
	basePath  string
	port      int
	staticDir string
	startedAt time.Time
}

// NewHandler 創建 HTTP 處理器
//
// staticDir 是靜態客戶端目錄，可為相對或絕對路徑
//（相對路徑以進程工作目錄為準，部署時建議用絕對路徑）。
func NewHandler(manager *Manager, hub *Hub, basePath string, port int, staticDir string, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		hub:       hub,
		logger:    logger,
		basePath:  basePath,
		port:      port,
		staticDir: staticDir,
		startedAt: time.Now(),
	}
}

// Routes 設定路由
//
// 整個應用掛載在固定子路徑下（預設 /tictactoe），
// 方便與其他應用共用同一個反向代理。
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// WebSocket 端點
	mux.HandleFunc("GET "+h.basePath+"/ws", h.hub.ServeWS)

	// 唯讀監控介面
	mux.HandleFunc("GET "+h.basePath+"/health", wrap(h.health))
	mux.HandleFunc("GET "+h.basePath+"/stats", wrap(h.stats))
	mux.HandleFunc("GET "+h.basePath+"/config", wrap(h.configInfo))

	// 靜態客戶端；根路徑重定向到子路徑
	mux.Handle(h.basePath+"/", http.StripPrefix(h.basePath+"/", http.FileServer(http.Dir(h.staticDir))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, h.basePath+"/", http.StatusFound)
	})

	return mux
}

// health 健康檢查：存活狀態與當前負載快照
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status":         "ok",
		"uptime":         time.Since(h.startedAt).Seconds(),
		"timestamp":      time.Now().UnixMilli(),
		"activeSessions": h.hub.SessionCount(),
		"activeRooms":    h.manager.RoomCount(),
	}, http.StatusOK)
}

// stats 進程資源統計
//
// 記憶體與 CPU 用量透過 gopsutil 讀取（跨平台，不依賴 /proc）。
// 讀取失敗時對應欄位留空，端點本身不報錯。
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	result := map[string]any{
		"uptime":   time.Since(h.startedAt).Seconds(),
		"basePath": h.basePath,
		"port":     h.port,
	}

	roomStats := h.manager.Stats()
	result["rooms"] = roomStats["total_rooms"]
	result["players"] = roomStats["total_players"]
	result["roomsByStatus"] = roomStats["by_status"]
	result["sessions"] = h.hub.SessionCount()

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			result["memory"] = map[string]any{
				"rss": mem.RSS,
				"vms": mem.VMS,
			}
		}
		if cpu, err := proc.Times(); err == nil {
			result["cpu"] = map[string]any{
				"user":   cpu.User,
				"system": cpu.System,
			}
		}
	}

	h.jsonResponse(w, result, http.StatusOK)
}

// configInfo 客戶端握手配置（客戶端據此找到 WebSocket 端點）
func (h *Handler) configInfo(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status":     "ok",
		"basePath":   h.basePath,
		"socketPath": h.basePath + "/ws",
		"port":       h.port,
	}, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.jsonResponse(w, map[string]any{
					"error": "內部伺服器錯誤",
				}, http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
