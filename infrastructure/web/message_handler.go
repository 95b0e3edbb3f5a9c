package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"

	"courier/domain"
	"courier/domain/event"
	"courier/errors"
	"courier/observability"
	"courier/services"
	"courier/sink"
)

type MessageHandler struct {
	log                  *slog.Logger
	chat                 services.IChatService
	monitor              *observability.Monitor
	connectionBufferSize int
	heartbeatInterval    time.Duration
	recentLimit          int
	searchLimit          int
}

func NewMessageHandler(log *slog.Logger, chat services.IChatService,
	monitor *observability.Monitor, connectionBufferSize int,
	heartbeatInterval time.Duration, recentLimit, searchLimit int) *MessageHandler {
	return &MessageHandler{
		log:                  log,
		chat:                 chat,
		monitor:              monitor,
		connectionBufferSize: connectionBufferSize,
		heartbeatInterval:    heartbeatInterval,
		recentLimit:          recentLimit,
		searchLimit:          searchLimit,
	}
}

type postMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// Post stores a message and returns the persisted record. The broadcast is
// triggered after the durable write; the caller's own client renders the
// message from its broadcast echo.
func (h *MessageHandler) Post(ctx iris.Context) {
	var req postMessageRequest
	if err := ctx.ReadJSON(&req); err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": err.Error()})
		return
	}

	message, err := h.chat.PostMessage(ctx.Request().Context(), domain.PostMessageCommand{
		SenderID:    callerID(ctx),
		RecipientID: req.RecipientID,
		Content:     req.Content,
	})
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	_ = ctx.JSON(message)
}

// Recent returns the newest messages across all conversations.
func (h *MessageHandler) Recent(ctx iris.Context) {
	messages, err := h.chat.Recent(h.recentLimit)
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	_ = ctx.JSON(messages)
}

// Transcript returns the full ordered history with one peer.
func (h *MessageHandler) Transcript(ctx iris.Context) {
	messages, err := h.chat.Transcript(domain.TranscriptQuery{
		CallerID: callerID(ctx),
		PeerID:   ctx.Params().Get("user"),
	})
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	if messages == nil {
		// An empty conversation is a valid empty transcript, not an error.
		messages = []domain.Message{}
	}
	_ = ctx.JSON(messages)
}

// Peers lists everyone except the caller, annotated with presence.
func (h *MessageHandler) Peers(ctx iris.Context) {
	users, err := h.chat.Peers(domain.PeerQuery{
		CallerID: callerID(ctx),
		Search:   ctx.URLParam("search"),
	})
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	_ = ctx.JSON(users)
}

// Search runs a full-text query against one conversation.
func (h *MessageHandler) Search(ctx iris.Context) {
	hits, err := h.chat.Search(ctx.Request().Context(),
		callerID(ctx), ctx.URLParam("peer"), ctx.URLParam("q"), h.searchLimit)
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	_ = ctx.JSON(hits)
}

// Stats serves the monitoring snapshot.
func (h *MessageHandler) Stats(ctx iris.Context) {
	_ = ctx.JSON(h.monitor.Snapshot())
}

// Events is the live subscription: a server-sent event stream carrying every
// new message. Subscribers filter by conversation locally. The stream has no
// replay; a client that reconnects refetches the transcript to fill the gap.
func (h *MessageHandler) Events(ctx iris.Context) {
	sessionID := uuid.NewString()
	stream := sink.NewStreamSink(h.log, h.connectionBufferSize, func() {
		h.chat.ReportDrop(sessionID)
	})
	h.chat.Join(sessionID, stream)
	defer h.chat.Leave(sessionID)

	ctx.ContentType("text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	writer := ctx.ResponseWriter()
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	reqCtx := ctx.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			h.log.Debug("subscriber disconnected", "session_id", sessionID)
			return
		case <-heartbeat.C:
			// Comment line keeps intermediaries from closing an idle stream.
			if _, err := fmt.Fprint(writer, ": ping\n\n"); err != nil {
				return
			}
			writer.Flush()
		case evt := <-stream.Events:
			stored, ok := evt.(event.MessageStored)
			if !ok {
				continue
			}
			payload, err := json.Marshal(stored.Message())
			if err != nil {
				h.log.Error("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(writer, "event: message\ndata: %s\n\n", payload); err != nil {
				h.log.Debug("subscriber write failed", "session_id", sessionID, "error", err)
				return
			}
			writer.Flush()
		}
	}
}
