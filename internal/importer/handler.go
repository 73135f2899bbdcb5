package importer

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gameshelf/pkg/utils"
)

type Handler struct {
	Importer *Importer
	Runner   *Runner
	Steam    utils.SteamConfig // env defaults; request fields override
	Import   utils.ImportConfig
}

func NewHandler(imp *Importer, runner *Runner, steamCfg utils.SteamConfig, importCfg utils.ImportConfig) *Handler {
	return &Handler{Importer: imp, Runner: runner, Steam: steamCfg, Import: importCfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/app/:appid", h.importOne) // POST /import/app/620
	rg.POST("/batch", h.importBatch)    // POST /import/batch
	rg.POST("/owned", h.importOwned)    // POST /import/owned
}

func (h *Handler) importOne(c *gin.Context) {
	appid, err := strconv.ParseInt(c.Param("appid"), 10, 64)
	if err != nil || appid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appid"})
		return
	}

	o := h.Importer.ImportOne(c.Request.Context(), appid)
	c.JSON(statusForOutcome(o), o)
}

// statusForOutcome maps the classification onto the HTTP surface:
// 200 imported, 422 skip (no data / denylisted), 409 duplicate, 500 error.
func statusForOutcome(o Outcome) int {
	switch o.Kind {
	case KindImported:
		return http.StatusOK
	case KindSkipped:
		if o.Reason == ReasonAlreadyImported {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type batchImportRequest struct {
	AppIDs      []int64 `json:"appids" binding:"required"`
	Concurrency int     `json:"concurrency"`
}

func (h *Handler) importBatch(c *gin.Context) {
	var req batchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appids required"})
		return
	}
	if len(req.AppIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appids must not be empty"})
		return
	}

	concurrency := req.Concurrency
	if concurrency == 0 {
		concurrency = h.Import.Concurrency
	}

	res, err := h.Runner.RunIDs(c.Request.Context(), req.AppIDs, concurrency, h.Import.BackoffDelay())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type ownedImportRequest struct {
	SteamID        string `json:"steam_id"`
	APIKey         string `json:"api_key"`
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
	Concurrency    int    `json:"concurrency"`
	GroupDelayMS   *int   `json:"group_delay_ms"`   // nil = env default, 0 = none
	BackoffDelayMS *int   `json:"backoff_delay_ms"` // nil = env default
	Verbose        bool   `json:"verbose"`
}

func (h *Handler) importOwned(c *gin.Context) {
	var req ownedImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// request-level overrides win over environment defaults
	steamID := req.SteamID
	if steamID == "" {
		steamID = h.Steam.SteamID
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = h.Steam.APIKey
	}
	if steamID == "" || apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "steam_id and api_key required (request or environment)"})
		return
	}

	p := PageParams{
		SteamID:      steamID,
		APIKey:       apiKey,
		Offset:       req.Offset,
		Limit:        req.Limit,
		Concurrency:  req.Concurrency,
		GroupDelay:   h.Import.GroupDelay(),
		BackoffDelay: h.Import.BackoffDelay(),
		Verbose:      req.Verbose,
	}
	if p.Concurrency == 0 {
		p.Concurrency = h.Import.Concurrency
	}
	if req.GroupDelayMS != nil {
		p.GroupDelay = time.Duration(*req.GroupDelayMS) * time.Millisecond
	}
	if req.BackoffDelayMS != nil {
		p.BackoffDelay = time.Duration(*req.BackoffDelayMS) * time.Millisecond
	}

	res, err := h.Runner.RunPage(c.Request.Context(), p)
	if err != nil {
		// page-level prerequisite failed; per-item outcomes never land here
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
