package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// APIUpsertContent stores one content item. Moving an item to another day
// regenerates the day it left; the new day is picked up by the next
// incremental pass.
func (h *Handler) APIUpsertContent(c *gin.Context) {
	id := c.Param("id")

	var req ContentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.PublishedAt.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": "published_at is required"})
		return
	}

	ctx := c.Request.Context()

	previous, err := h.content.GetContentItem(ctx, id)
	if err != nil {
		slog.Error("Database error", "operation", "get_content_item", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	item := database.ContentItem{
		ID:          id,
		Type:        req.Type,
		Status:      req.Status,
		Path:        req.Path,
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		PublishedAt: req.PublishedAt,
		ModifiedAt:  modifiedOrNow(req.ModifiedAt),
		NoIndex:     req.NoIndex,
	}
	if req.Image != nil {
		item.ImageURL = req.Image.URL
		item.ImageCaption = req.Image.Caption
		item.ImageTitle = req.Image.Title
	}

	if err := h.content.UpsertContentItem(ctx, item); err != nil {
		slog.Error("Database error", "operation", "upsert_content_item", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if req.Terms != nil {
		if err := h.content.SetItemTerms(ctx, id, req.Terms); err != nil {
			slog.Error("Database error", "operation", "set_item_terms", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
			return
		}
	}

	response := gin.H{
		"success": true,
		"id":      id,
		"created": previous == nil,
	}

	if previous != nil {
		stored, err := h.content.GetContentItem(ctx, id)
		if err != nil || stored == nil {
			slog.Error("Database error", "operation", "get_content_item", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		oldDate := sitemap.DateKey(previous.PublishedDate)
		if oldDate != sitemap.DateKey(stored.PublishedDate) {
			outcome, err := h.engine.Regenerate(ctx, oldDate)
			if err != nil {
				regenerateFailed(c, id, oldDate, err)
				return
			}
			response["regenerated"] = gin.H{"key": oldDate.String(), "outcome": outcome}
		}
	}

	c.JSON(http.StatusOK, response)
}

// APIDeleteContent removes an item and regenerates the day it was listed on.
func (h *Handler) APIDeleteContent(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	item, err := h.content.GetContentItem(ctx, id)
	if err != nil {
		slog.Error("Database error", "operation", "get_content_item", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content item not found"})
		return
	}

	if _, err := h.content.DeleteContentItem(ctx, id); err != nil {
		slog.Error("Database error", "operation", "delete_content_item", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	key := sitemap.DateKey(item.PublishedDate)

	outcome, err := h.engine.Regenerate(ctx, key)
	if err != nil {
		regenerateFailed(c, id, key, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "key": key.String(), "outcome": outcome})
}

// regenerateFailed reports a content write that was stored but whose
// sitemap is now out of date. The incremental pass does not see such
// days, so the client has to retry through the regenerate endpoint.
func regenerateFailed(c *gin.Context, id string, key sitemap.Key, err error) {
	slog.Error("Failed to regenerate sitemap after content write", "id", id, "key", key.String(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":             "Sitemap regeneration failed",
		"details":           err.Error(),
		"id":                id,
		"stored":            true,
		"regenerate_failed": key.String(),
		"retry":             "/api/sitemaps/" + key.String() + "/regenerate",
	})
}

func (h *Handler) APIUpsertTerm(c *gin.Context) {
	var req TermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	term := database.Term{
		ID:         c.Param("id"),
		Taxonomy:   req.Taxonomy,
		Slug:       req.Slug,
		Name:       req.Name,
		Path:       req.Path,
		ModifiedAt: modifiedOrNow(req.ModifiedAt),
	}

	if err := h.content.UpsertTerm(c.Request.Context(), term); err != nil {
		slog.Error("Database error", "operation", "upsert_term", "id", term.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": term.ID})
}

func (h *Handler) APIUpsertAuthor(c *gin.Context) {
	var req AuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	author := database.Author{
		ID:         c.Param("id"),
		Name:       req.Name,
		Path:       req.Path,
		ModifiedAt: modifiedOrNow(req.ModifiedAt),
	}

	if err := h.content.UpsertAuthor(c.Request.Context(), author); err != nil {
		slog.Error("Database error", "operation", "upsert_author", "id", author.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": author.ID})
}

func modifiedOrNow(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return *t
	}
	return time.Now().UTC()
}
