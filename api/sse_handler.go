package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/eventstream"
)

const sseHeartbeatInterval = 30 * time.Second

// handleEventsSSE handles GET /api/v1/events/memories (spec.md §4.G). It
// writes a connected event, registers an event-bus subscription on
// (project, subject), and fans out every subsequent event as it's
// emitted, interleaved with a 30s heartbeat, until the client disconnects.
//
// Streaming uses SetBodyStreamWriter rather than an io.Pipe goroutine: the
// teacher's proxy reaches for io.Pipe only because it is relaying an
// upstream response body it doesn't control the pace of; here the server
// itself produces each event, so fasthttp's per-chunk-flushing stream
// writer callback is the direct fit (spec.md §4.G, §5 "non-blocking write
// to the socket's output buffer").
func (s *Server) handleEventsSSE(c *fiber.Ctx) error {
	pid := projectID(c)
	subjectID := c.Query("subject_id")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache, no-transform")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		writeEvent := func(eventType string, data any) bool {
			payload, err := json.Marshal(data)
			if err != nil {
				s.logger.Error("sse: failed to marshal event", zap.Error(err))
				return false
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
				return false
			}
			return w.Flush() == nil
		}

		if !writeEvent(eventstream.TypeConnected, map[string]any{
			"project_id": pid,
			"subject_id": subjectID,
			"timestamp":  time.Now().UTC(),
		}) {
			return
		}

		incoming := make(chan eventstream.Event, 16)
		unsubscribe := s.bus.Subscribe(pid, subjectID, func(ev eventstream.Event) {
			select {
			case incoming <- ev:
			default:
				s.logger.Warn("sse: dropping event, subscriber buffer full", zap.String("type", ev.Type))
			}
		})

		var once sync.Once
		defer once.Do(unsubscribe)

		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case ev := <-incoming:
				if !writeEvent(ev.Type, ev.Data) {
					return
				}
			case <-heartbeat.C:
				if !writeEvent(eventstream.TypeHeartbeat, map[string]any{"timestamp": time.Now().UTC()}) {
					return
				}
			}
		}
	})

	return nil
}
