package domains

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"domain-manager/core/logger"
	"domain-manager/core/orchestrator"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	streamBuffer      = 4
	heartbeatInterval = 15 * time.Second
)

// HandleStream sends every new snapshot as a server-sent event. The stream
// ends when the client disconnects or the feature is closed.
func (h *Handler) HandleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	l := logger.WithRayID(h.service.logger, c)
	events, cancel := h.service.Subscribe(streamBuffer)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		l.Debug("Snapshot stream opened")
		err := writeEvents(h.service.ctx, w, events, heartbeatInterval)
		l.Debug("Snapshot stream closed", zap.Error(err))
	}))
	return nil
}

// writeEvents writes snapshots as "snapshot" events until ctx is done, the
// events channel closes or a write fails. Idle streams get a comment line every heartbeat so dead
// clients are detected.
func writeEvents(ctx context.Context, w *bufio.Writer, events <-chan orchestrator.Snapshot, heartbeat time.Duration) error {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}
