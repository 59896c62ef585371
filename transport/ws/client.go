package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/services"
	"chat-relay/sink"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

// Client binds one WebSocket connection to one registry entry. The read
// pump turns inbound frames into commands, the write pump drains the
// connection's sink. Both stop on the first transport error, which
// triggers Disconnect exactly once.
type Client struct {
	connID string
	user   domain.User
	conn   *websocket.Conn
	sink   *sink.ChannelSink
	chat   services.IChatService
	log    *slog.Logger
}

func NewClient(log *slog.Logger, conn *websocket.Conn, connID string,
	user domain.User, chatService services.IChatService, s *sink.ChannelSink) *Client {
	return &Client{
		connID: connID,
		user:   user,
		conn:   conn,
		sink:   s,
		chat:   chatService,
		log:    log,
	}
}

// ReadPump consumes inbound frames until the connection dies. It must
// run on the connection's goroutine; closing the socket unblocks it.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.chat.Disconnect(ctx, c.connID, c.user.ID)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt ClientEvent
		if err := c.conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", "conn_id", c.connID, "error", err)
			}
			return
		}
		c.dispatch(ctx, evt)
	}
}

// dispatch maps one inbound frame to its command. Failures of benign
// operations (disconnect races) are logged and swallowed; send failures
// are echoed to the originating connection only.
func (c *Client) dispatch(ctx context.Context, evt ClientEvent) {
	switch evt.Type {
	case EventJoinRoom:
		err := c.chat.JoinRoom(ctx, chat.JoinRoomCommand{
			Room:         evt.RoomID,
			ConnectionID: c.connID,
		})
		if err != nil {
			c.log.Debug("Join failed", "conn_id", c.connID, "room", evt.RoomID, "error", err)
		}
	case EventLeaveRoom:
		err := c.chat.LeaveRoom(ctx, chat.LeaveRoomCommand{
			Room:         evt.RoomID,
			ConnectionID: c.connID,
		}, c.user.ID)
		if err != nil {
			c.log.Debug("Leave failed", "conn_id", c.connID, "room", evt.RoomID, "error", err)
		}
	case EventSendMessage:
		_, err := c.chat.PostMessage(ctx, chat.PostMessageCommand{
			Room:      evt.RoomID,
			Sender:    c.user,
			Content:   evt.Content,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			// The sender must see an explicit failure and resend.
			_ = c.sink.Consume(ctx, event.SendRejected{Room: evt.RoomID, Reason: err.Error()})
		}
	case EventTyping:
		c.chat.StartTyping(ctx, chat.StartTypingCommand{Room: evt.RoomID, User: c.user})
	case EventStopTyping:
		c.chat.StopTyping(ctx, chat.StopTypingCommand{Room: evt.RoomID, UserID: c.user.ID})
	default:
		c.log.Debug(fmt.Sprintf("Unknown client event %q", evt.Type))
	}
}

// WritePump drains the sink into the socket and keeps the connection
// alive with pings. It owns all writes; gorilla allows one writer only.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-c.sink.Events:
			frame, ok := FromDomainEvent(evt)
			if !ok {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Debug("Write failed", "conn_id", c.connID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
