package backlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gameshelf/internal/auth"
	"gameshelf/internal/events"
	"gameshelf/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *events.Hub
}

func NewHandler(repo *Repo, hub *events.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/backlog", h.list)
	rg.POST("/backlog", h.addOrUpdate)
	rg.PUT("/backlog/:appid", h.addOrUpdate)
	rg.DELETE("/backlog/:appid", h.remove)
	rg.GET("/backlog/:appid", h.getOne)
}

type upsertReq struct {
	AppID  int64  `json:"appid"` // required for POST
	Status string `json:"status"`
	Rating *int   `json:"rating"`
	Notes  string `json:"notes"`
}

func (h *Handler) addOrUpdate(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	appid := req.AppID
	if appid == 0 {
		appid = parseAppID(c.Param("appid"))
	}
	if appid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appid required"})
		return
	}

	status := normalizeStatus(req.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of: backlog, playing, completed, dropped",
		})
		return
	}

	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 10) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be 1-10"})
		return
	}

	item := models.BacklogItem{
		UserID: claims.UserID,
		AppID:  appid,
		Status: status,
		Rating: req.Rating,
		Notes:  strings.TrimSpace(req.Notes),
	}
	if err := h.Repo.Upsert(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	// Return canonical stored row including updated_at
	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID, appid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	if saved == nil {
		// should not happen, but safe
		item.UpdatedAt = time.Now().UTC()
		saved = &item
	}

	if h.Hub != nil {
		go h.Hub.Publish(events.TypeBacklogUpdate, saved)
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		status = normalizeStatus(status)
		if status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	appid := parseAppID(c.Param("appid"))
	if appid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appid required"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID, appid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		go h.Hub.Publish(events.TypeBacklogDelete, gin.H{
			"user_id": claims.UserID,
			"appid":   appid,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	appid := parseAppID(c.Param("appid"))
	if appid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appid required"})
		return
	}

	it, err := h.Repo.Get(c.Request.Context(), claims.UserID, appid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "backlog", "":
		return models.BacklogStatusBacklog
	case "playing":
		return models.BacklogStatusPlaying
	case "completed", "finished":
		return models.BacklogStatusCompleted
	case "dropped", "abandoned":
		return models.BacklogStatusDropped
	default:
		return ""
	}
}

func parseAppID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
