package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/boilagbe-backend/internal/model"
	"github.com/shinyyama/boilagbe-backend/internal/service"
)

type MessageHandler struct {
	svc service.MessageService
}

func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type SendMessageRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
}

type MarkReadRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

type MarkReadResponse struct {
	Success bool  `json:"success"`
	Updated int64 `json:"updated"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
}

// List returns the conversation between sender and receiver.
// unreadOnly narrows it to unread sender->receiver messages; lastOnly keeps only the newest one.
func (h *MessageHandler) List(c echo.Context) error {
	sender := c.QueryParam("sender")
	receiver := c.QueryParam("receiver")
	if uid := actor(c); uid != "" && uid != sender && uid != receiver {
		return forbidden(c)
	}
	unreadOnly := c.QueryParam("unreadOnly") == "true"
	lastOnly := c.QueryParam("lastOnly") == "true"
	ctx := c.Request().Context()

	var (
		msgs []model.Message
		err  error
	)
	switch {
	case unreadOnly:
		msgs, err = h.svc.Unread(ctx, sender, receiver)
		if err == nil && lastOnly && len(msgs) > 1 {
			msgs = msgs[len(msgs)-1:]
		}
	case lastOnly:
		var last *model.Message
		last, err = h.svc.Latest(ctx, sender, receiver)
		msgs = []model.Message{}
		if last != nil {
			msgs = append(msgs, *last)
		}
	default:
		msgs, err = h.svc.History(ctx, sender, receiver)
	}
	if err != nil {
		return serviceError(c, err, "messages not found", "failed to fetch messages")
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *MessageHandler) UnreadCount(c echo.Context) error {
	sender := c.QueryParam("sender")
	receiver := c.QueryParam("receiver")
	if uid := actor(c); uid != "" && uid != receiver {
		return forbidden(c)
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), sender, receiver)
	if err != nil {
		return serviceError(c, err, "messages not found", "failed to count unread messages")
	}
	return c.JSON(http.StatusOK, UnreadCountResponse{Count: n})
}

func (h *MessageHandler) Conversations(c echo.Context) error {
	user := c.QueryParam("user")
	if uid := actor(c); uid != "" {
		if user == "" {
			user = uid
		}
		if user != uid {
			return forbidden(c)
		}
	}
	list, err := h.svc.Summaries(c.Request().Context(), user)
	if err != nil {
		return serviceError(c, err, "conversations not found", "failed to fetch conversations")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *MessageHandler) Create(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if uid := actor(c); uid != "" {
		if req.Sender == "" {
			req.Sender = uid
		}
		if req.Sender != uid {
			return forbidden(c)
		}
	}
	msg, err := h.svc.Send(c.Request().Context(), service.SendInput{
		SenderID:   req.Sender,
		ReceiverID: req.Receiver,
		Text:       req.Text,
		Via:        "rest",
	})
	if err != nil {
		return serviceError(c, err, "message not found", "failed to send message")
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.svc.Delete(c.Request().Context(), id, actor(c)); err != nil {
		return serviceError(c, err, "message not found", "failed to delete message")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// MarkRead stamps every unread sender->receiver message as read now.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	var req MarkReadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if uid := actor(c); uid != "" && uid != req.Receiver {
		return forbidden(c)
	}
	n, err := h.svc.MarkRead(c.Request().Context(), req.Sender, req.Receiver)
	if err != nil {
		return serviceError(c, err, "messages not found", "failed to mark messages read")
	}
	return c.JSON(http.StatusOK, MarkReadResponse{Success: true, Updated: n})
}
