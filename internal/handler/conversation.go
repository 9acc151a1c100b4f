package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"quick_chat/internal/service"
	"quick_chat/pkg/logger"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	log                 logger.Logger
}

func NewConversationHandler(conversationService service.ConversationService, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		log:                 log,
	}
}

func (h *ConversationHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	counterpart, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	messages, err := h.conversationService.OpenConversation(c.Request.Context(), userID, counterpart, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "page": page})
}

func (h *ConversationHandler) MarkSeen(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	counterpart, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	updated, err := h.conversationService.MarkSeen(c.Request.Context(), userID, counterpart)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	counterpart, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	removed, err := h.conversationService.DeleteConversation(c.Request.Context(), userID, counterpart)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted", "removed": removed})
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
	Text       string    `json:"text"`
	Attachment string    `json:"attachment"`
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.conversationService.Send(c.Request.Context(), userID, req.ReceiverID, req.Text, req.Attachment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ConversationHandler) GetMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "messageId")
	if !ok {
		return
	}

	message, err := h.conversationService.GetMessage(c.Request.Context(), userID, messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := uuidParam(c, "messageId")
	if !ok {
		return
	}

	forEveryone, err := strconv.ParseBool(c.DefaultQuery("for_everyone", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid for_everyone"})
		return
	}

	result, err := h.conversationService.DeleteOne(c.Request.Context(), userID, messageID, forEveryone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.conversationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *ConversationHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.conversationService.OnlineUsers()})
}
