package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/services"
)

// RestMessageHandler handles REST requests for listing conversations.
type RestMessageHandler struct {
	messageService services.IMessageService
}

// NewRestMessageHandler creates a new RestMessageHandler.
func NewRestMessageHandler(messageService services.IMessageService) *RestMessageHandler {
	return &RestMessageHandler{messageService: messageService}
}

// SendMessageArgs is the body of POST /api/messages.
type SendMessageArgs struct {
	ListingID  int64  `json:"bike_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendMessage handles POST /api/messages
func (h *RestMessageHandler) SendMessage(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var args SendMessageArgs
	if err := c.ShouldBindJSON(&args); err != nil || args.ListingID <= 0 || args.ReceiverID <= 0 || args.Content == "" {
		respondValidation(c, "bike_id, receiver_id, and content are required")
		return
	}

	msg, err := h.messageService.SendMessage(c.Request.Context(), userID, args.ListingID, args.ReceiverID, args.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "message_id": msg.ID})
}

// ListingMessages handles GET /api/messages/bike/:id
func (h *RestMessageHandler) ListingMessages(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, err := h.messageService.ListingMessages(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Conversations handles GET /api/messages/conversations
func (h *RestMessageHandler) Conversations(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	threads, err := h.messageService.ThreadsFor(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if threads == nil {
		threads = []models.Thread{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": threads})
}
