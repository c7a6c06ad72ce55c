package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/engine"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

func NewHandler(e EngineInterface, documents database.DocumentStore, content database.ContentStore, baseURL string) *Handler {
	return &Handler{
		engine:    e,
		documents: documents,
		content:   content,
		renderer:  sitemap.NewRenderer(),
		baseURL:   baseURL,
	}
}

// documentKey accepts "2024-03-01.xml" as well as a bare key.
func documentKey(name string) (sitemap.Key, error) {
	return sitemap.ParseKey(strings.TrimSuffix(name, ".xml"))
}

func (h *Handler) GetSitemapIndex(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_documents", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	set, err := sitemap.NewCappedSet[sitemap.IndexEntry](sitemap.MaxEntries)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	for _, doc := range docs {
		key, err := sitemap.ParseKey(doc.Key)
		if err != nil {
			slog.Warn("Skipping document with invalid key", "key", doc.Key, "error", err)
			continue
		}
		entry, err := sitemap.NewIndexEntry(sitemap.DocumentLoc(h.baseURL, key), doc.BuiltAt)
		if err != nil {
			slog.Warn("Skipping invalid index entry", "key", doc.Key, "error", err)
			continue
		}
		if !set.Add(entry) {
			slog.Warn("Sitemap index ceiling reached", "documents", len(docs), "max", set.Max())
			break
		}
	}

	xml, err := h.renderer.RunIndex(set.Entries())
	if err != nil {
		slog.Error("Sitemap index generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Sitemap-Documents", strconv.Itoa(set.Len()))

	c.String(http.StatusOK, xml)
}

func (h *Handler) GetSitemap(c *gin.Context) {
	name := c.Param("name")
	if !strings.HasSuffix(name, ".xml") {
		c.Status(http.StatusNotFound)
		return
	}

	key, err := documentKey(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), key.String())
	if err != nil {
		slog.Error("Database error", "operation", "get_document", "key", key.String(), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if doc == nil {
		c.Status(http.StatusNotFound)
		return
	}

	builtAt := doc.BuiltAt.UTC()
	if since, err := http.ParseTime(c.GetHeader("If-Modified-Since")); err == nil && !builtAt.Truncate(time.Second).After(since) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Sitemap-Entries", strconv.Itoa(doc.EntryCount))
	c.Header("X-Sitemap-Key", doc.Key)
	c.Header("Last-Modified", builtAt.Format(http.TimeFormat))

	c.String(http.StatusOK, doc.XML)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.documents.Count(c.Request.Context()); err == nil {
		health["documents"] = count
	}

	if status, err := h.engine.GetStatus(c.Request.Context()); err == nil {
		health["generation"] = map[string]interface{}{
			"enabled":     status.Enabled,
			"in_progress": status.InProgress,
			"halted":      status.Halted,
			"last_check":  status.LastCheck,
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIGetStatus(c *gin.Context) {
	status, err := h.engine.GetStatus(c.Request.Context())
	if err != nil {
		slog.Error("Failed to load generation status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generation status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIGetReport(c *gin.Context) {
	report, err := h.engine.Detect(c.Request.Context())
	if err != nil {
		slog.Error("Detection failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Detection failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report.Summary())
}

func (h *Handler) APIStartGeneration(c *gin.Context) {
	st, err := h.engine.StartFullGeneration(c.Request.Context())
	if errors.Is(err, engine.ErrGenerationInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Failed to start generation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start generation", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"pending_years":    st.PendingYears,
		"pending_months":   len(st.PendingMonths),
		"pending_days":     len(st.PendingDays),
		"pending_entities": len(st.PendingEntities),
	})
}

func (h *Handler) APIHaltGeneration(c *gin.Context) {
	err := h.engine.HaltGeneration(c.Request.Context())
	if errors.Is(err, engine.ErrNotInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Failed to halt generation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to halt generation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Generation will stop at the next tick",
	})
}

func (h *Handler) APIResetGeneration(c *gin.Context) {
	if err := h.engine.ResetAllState(c.Request.Context()); err != nil {
		slog.Error("Failed to reset generation state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset generation state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APITickGeneration(c *gin.Context) {
	result, err := h.engine.Tick(c.Request.Context())
	if err != nil {
		slog.Error("Generation tick failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation tick failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIRunIncremental(c *gin.Context) {
	result, err := h.engine.RunIncrementalPass(c.Request.Context())
	if err != nil {
		slog.Error("Incremental pass failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Incremental pass failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIRegenerateSitemap(c *gin.Context) {
	key, err := documentKey(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sitemap key", "details": err.Error()})
		return
	}

	outcome, err := h.engine.Regenerate(c.Request.Context(), key)
	if err != nil {
		slog.Error("Sitemap regeneration failed", "key", key.String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sitemap regeneration failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key.String(),
		"outcome": outcome,
	})
}

func (h *Handler) APIUpdateCron(c *gin.Context) {
	var req CronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Enabled == nil && req.Frequency == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update, provide enabled or frequency"})
		return
	}

	ctx := c.Request.Context()

	if req.Frequency != nil {
		if err := h.engine.SetCronFrequency(ctx, strings.TrimSpace(*req.Frequency)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cron frequency", "details": err.Error()})
			return
		}
	}

	if req.Enabled != nil {
		if err := h.engine.SetCronEnabled(ctx, *req.Enabled); err != nil {
			slog.Error("Failed to update cron state", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cron state"})
			return
		}
	}

	status, err := h.engine.GetStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generation status"})
		return
	}

	c.JSON(http.StatusOK, status)
}
