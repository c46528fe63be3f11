package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/api/dto"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
)

const (
	streamBuffer    = 16
	streamHeartbeat = 15 * time.Second
)

// SyncHandler exposes the sync manager.
type SyncHandler struct {
	ctx         context.Context
	sync        *realtime.Manager
	collections *repository.Collections
	logger      *zap.Logger
}

// NewSyncHandler constructs handler. Open event streams end when ctx is done.
func NewSyncHandler(ctx context.Context, manager *realtime.Manager, collections *repository.Collections, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{ctx: ctx, sync: manager, collections: collections, logger: logger}
}

// Stats handles GET /sync/stats.
func (h *SyncHandler) Stats(c *fiber.Ctx) error {
	if _, err := actor(c); err != nil {
		return err
	}
	stats, err := h.sync.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Force handles POST /sync/force.
func (h *SyncHandler) Force(c *fiber.Ctx) error {
	if _, err := actor(c); err != nil {
		return err
	}
	if err := h.sync.ForceSync(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"lastSync": domain.FormatTimestamp(h.sync.LastSync())}})
}

// Visibility handles POST /sync/visibility.
func (h *SyncHandler) Visibility(c *fiber.Ctx) error {
	if _, err := actor(c); err != nil {
		return err
	}
	var req dto.VisibilityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	h.sync.SetVisibility(req.Visible)
	return c.SendStatus(fiber.StatusAccepted)
}

// streamScope narrows broadcast payloads to what one actor may see.
type streamScope struct {
	mu    sync.Mutex
	actor domain.User
	users []domain.User
}

func (s *streamScope) apply(e realtime.Event) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch payload := e.Payload.(type) {
	case []domain.User:
		s.users = payload
		return dto.FromUsers(privacy.VisibleUsers(&s.actor, payload))
	case []domain.SalesRecord:
		return privacy.VisibleSales(&s.actor, s.users, payload)
	case []domain.AttendanceRecord:
		return privacy.VisibleAttendance(&s.actor, s.users, payload)
	default:
		return payload
	}
}

func encodeEvent(e realtime.Event, payload any) ([]byte, error) {
	data, err := json.Marshal(fiber.Map{"trigger": e.Trigger, "data": payload})
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Category, data)), nil
}

// Events handles GET /sync/events as a server-sent event stream of the
// caller's visible collections. The listeners are removed when the client
// disconnects.
func (h *SyncHandler) Events(c *fiber.Ctx) error {
	user, err := actor(c)
	if err != nil {
		return err
	}
	users, err := h.collections.Users(c.UserContext())
	if err != nil {
		return err
	}

	scope := &streamScope{actor: *user, users: users}
	messages := make(chan []byte, streamBuffer)
	ids := make(map[realtime.Category]realtime.ListenerID, len(realtime.Categories))
	for _, category := range realtime.Categories {
		ids[category] = h.sync.AddListener(category, func(_ context.Context, e realtime.Event) error {
			msg, err := encodeEvent(e, scope.apply(e))
			if err != nil {
				return err
			}
			// A full buffer drops the snapshot; the next pass resends full state.
			select {
			case messages <- msg:
			default:
			}
			return nil
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	userID := user.ID
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			for category, id := range ids {
				h.sync.RemoveListener(category, id)
			}
			h.logger.Debug("event stream closed", zap.String("user_id", userID))
		}()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case <-h.ctx.Done():
				return
			case msg := <-messages:
				if _, err := w.Write(msg); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
