package handler

import (
	"errors"
	"net/http"
	"strconv"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/config"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/validation"

	"github.com/gin-gonic/gin"
)

// MarkSeen moves a message to SEEN. Anyone may call it.
func (h *Handler) MarkSeen(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, &validation.Error{Fields: map[string]string{"id": "must be a positive number"}})
		return
	}
	if err := h.Chat.MarkSeen(c.Request.Context(), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SessionHistory pages a guest room's history. An unknown session answers
// 404 with an empty page, and so does a "user-<id>" key: those rooms are
// only readable by their owner or an admin.
func (h *Handler) SessionHistory(c *gin.Context) {
	if _, ok := config.ParseUserRoomKey(c.Param("sessionId")); ok {
		if page, valid := bindPage(c); valid {
			c.JSON(http.StatusNotFound, models.NewPage[models.ChatMessageEvent](nil, page, 0))
		}
		return
	}
	h.AdminSessionHistory(c)
}

// AdminSessionHistory pages the history of any room by its topic key.
func (h *Handler) AdminSessionHistory(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	result, err := h.Chat.HistoryBySession(c.Request.Context(), c.Param("sessionId"), page)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.NewPage[models.ChatMessageEvent](nil, page, 0))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MyHistory pages the history of the caller's own room.
func (h *Handler) MyHistory(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	userID, _ := auth.UserIDFrom(c)
	result, err := h.Chat.HistoryForUser(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRooms pages chat rooms for the admin. ?closed=true|false filters.
func (h *Handler) ListRooms(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	var filter storage.RoomFilter
	if raw := c.Query("closed"); raw != "" {
		closed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, &validation.Error{Fields: map[string]string{"closed": "must be true or false"}})
			return
		}
		filter.Closed = &closed
	}
	result, err := h.Chat.ListRooms(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindPage reads ?page=&size= and answers 400 itself when they are bad.
func bindPage(c *gin.Context) (models.PageRequest, bool) {
	var page models.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondError(c, &validation.Error{Fields: map[string]string{"page": "page and size must be numbers"}})
		return page, false
	}
	if err := validation.ValidateStruct(&page); err != nil {
		respondError(c, err)
		return page, false
	}
	return page.Normalize(config.DefaultPageSize, config.MaxPageSize), true
}
