package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live_poll/internal/models"
	"live_poll/internal/repository"
	"live_poll/internal/service"
)

// SessionHandler 提供目前 Session 的唯讀快照
type SessionHandler struct {
	hub      *service.Hub
	services *service.Services
	archive  repository.PollArchiveRepository // 未啟用歸檔時為 nil
	logger   *zap.Logger
}

// NewSessionHandler 創建一個新的 SessionHandler 實例
func NewSessionHandler(hub *service.Hub, services *service.Services, archive repository.PollArchiveRepository, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{hub: hub, services: services, archive: archive, logger: logger}
}

// GetActivePoll 取得目前題目
func (h *SessionHandler) GetActivePoll(c *gin.Context) {
	var poll *models.Poll
	if !h.query(c, func() { poll = h.services.Polls.ActivePoll() }) {
		return
	}
	if poll == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active poll"})
		return
	}
	c.JSON(http.StatusOK, poll)
}

// GetHistory 取得歷史題目，最新的在最後
func (h *SessionHandler) GetHistory(c *gin.Context) {
	var history []*models.Poll
	if !h.query(c, func() { history = h.services.Polls.History() }) {
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetRoster 取得學生名單
func (h *SessionHandler) GetRoster(c *gin.Context) {
	var roster []models.RosterEntry
	if !h.query(c, func() { roster = h.services.Registry.RosterView() }) {
		return
	}
	c.JSON(http.StatusOK, roster)
}

// GetStats 連接數與參與者數
func (h *SessionHandler) GetStats(c *gin.Context) {
	var connections, participants, historyLen int
	ok := h.query(c, func() {
		connections = h.hub.ClientCount()
		participants = h.services.Registry.Count()
		historyLen = len(h.services.Polls.History())
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connections":  connections,
		"participants": participants,
		"polls":        historyLen,
	})
}

// ListArchivedPolls 列出資料庫中的歸檔題目，?limit= 預設 50
func (h *SessionHandler) ListArchivedPolls(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	polls, err := h.archive.FindRecent(limit)
	if err != nil {
		h.logger.Error("list archived polls failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load archive"})
		return
	}
	c.JSON(http.StatusOK, polls)
}

// query 在 Hub 事件迴圈中讀取狀態
func (h *SessionHandler) query(c *gin.Context, fn func()) bool {
	if err := h.hub.Query(c.Request.Context(), fn); err != nil {
		h.logger.Warn("session query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
		return false
	}
	return true
}
