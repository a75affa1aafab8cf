package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	handler "github.com/raviteja1088/wayfindr-app/module/core/internal/handler/http"
)

const defaultWriteTimeout = 10 * time.Second

type feedService interface {
	Subscription(ctx context.Context, consumerID string) (*domain.Subscription, error)
	Follow(ctx context.Context, sub *domain.Subscription, deliver func(domain.PositionEvent) error) error
}

// FeedHandler streams the caller's assigned bus over a websocket. Every
// message is a domain.PositionMessage; the first one may be the replayed
// latest position.
type FeedHandler struct {
	feed         feedService
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewFeedHandler(feed feedService) *FeedHandler {
	return &FeedHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeTimeout: defaultWriteTimeout,
	}
}

func (h *FeedHandler) Register(r *gin.RouterGroup) {
	r.GET("/ws/feed", handler.RequireRole(domain.RoleStudent), h.Stream)
}

func (h *FeedHandler) Stream(c *gin.Context) {
	id, _ := handler.IdentityFrom(c)

	sub, err := h.feed.Subscription(c.Request.Context(), id.UserID)
	if errors.Is(err, domain.ErrNotAssigned) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bus assigned"})
		return
	}
	if err != nil {
		log.Printf("feed subscription %s: %v", id.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve assignment"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("feed: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the client never sends anything useful; reading surfaces the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("feed %s: read error: %v", id.UserID, err)
				}
				return
			}
		}
	}()

	err = h.feed.Follow(ctx, sub, func(ev domain.PositionEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		return conn.WriteJSON(domain.NewPositionMessage(ev.Sample, ev.Replayed))
	})
	if err != nil {
		log.Printf("feed %s: %v", id.UserID, err)
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
