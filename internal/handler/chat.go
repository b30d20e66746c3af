package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lms_backend/internal/domain"
	"lms_backend/internal/middleware"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

type ChatHandler struct {
	chatService  service.ChatService
	mediaService service.MediaService
	log          logger.Logger
}

func NewChatHandler(chatService service.ChatService, mediaService service.MediaService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		mediaService: mediaService,
		log:          log,
	}
}

type AccessConversationRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type SendMessageRequest struct {
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Media   *string `json:"media"`
}

type UpdateMessageRequest struct {
	Content *string `json:"content"`
	Media   *string `json:"media"`
	Type    *string `json:"type"`
}

// Access opens the direct conversation with another user, creating it on
// first contact. 201 means the conversation was just created, 200 that it
// already existed.
func (h *ChatHandler) Access(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req AccessConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	conv, created, err := h.chatService.AccessConversation(c.Request.Context(), caller.ID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.log.Info("Conversation created", "conversation_id", conv.ID, "user_id", caller.ID)
	}
	c.JSON(status, conv)
}

func (h *ChatHandler) List(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	convs, err := h.chatService.ListConversations(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// Send accepts either a JSON body or a multipart form with a file part. An
// attached file is stored first and its URL becomes the message media.
func (h *ChatHandler) Send(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	var req SendMessageRequest
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if req, err = h.bindMultipart(c); err != nil {
			respondError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	msg, err := h.chatService.Send(c.Request.Context(), caller.ID, convID, req.Type, req.Content, req.Media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) bindMultipart(c *gin.Context) (SendMessageRequest, error) {
	req := SendMessageRequest{
		Type:    c.PostForm("type"),
		Content: c.PostForm("content"),
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No file part: the form carries text only.
		return req, nil
	}

	f, err := fileHeader.Open()
	if err != nil {
		return req, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return req, err
	}

	url, kind, err := h.mediaService.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		return req, err
	}
	req.Media = &url
	if req.Type == "" {
		req.Type = kind
	}
	return req, nil
}

func (h *ChatHandler) Messages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	msgs, err := h.chatService.ListMessages(c.Request.Context(), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	count, err := h.chatService.MarkRead(c.Request.Context(), convID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func (h *ChatHandler) UpdateMessage(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	patch := &domain.MessagePatch{Content: req.Content, Media: req.Media, Type: req.Type}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	msg, err := h.chatService.UpdateMessage(c.Request.Context(), caller, msgID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	msgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	if err := h.chatService.DeleteMessage(c.Request.Context(), caller, msgID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
