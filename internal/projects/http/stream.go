package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apihttp "github.com/cutroom/cutroom-backend/internal/api/http"
	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/projects/notify"
)

// StreamProjectEvents streams project snapshots using Server-Sent Events.
// The caller must be able to read the project when the stream opens, and
// the stream ends once a snapshot shows they no longer participate.
func (h *Handler) StreamProjectEvents(c *gin.Context) {
	const op = "project.stream"
	ctx := c.Request.Context()
	projectID := c.Param("id")
	userID := auth.UserFirebaseUID(c)

	// Subscribe before reading the snapshot so a write landing in between
	// is still delivered.
	var sub *notify.Subscription
	if h.events != nil {
		var err error
		sub, err = h.events.Subscribe(ctx, projectID)
		if err != nil {
			apihttp.WriteError(c, domain.Wrap(domain.KindUpstream, op, err))
			return
		}
		defer sub.Close()
	}

	p, err := h.projects.GetProject(ctx, userID, projectID)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	if sub == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"ok": false, "error": "event stream unavailable", "code": domain.KindUpstream,
		})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		apihttp.WriteError(c, domain.E(domain.KindUpstream, op, "streaming unsupported"))
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)

	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			logging.New(ctx).Error(op, err)
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	send("initial", gin.H{"project": view(userID, p)})
	sent := p.Version

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Type {
			case notify.EventDeleted:
				send("deleted", gin.H{"project_id": projectID, "at": ev.At})
				return
			case notify.EventUpdate:
				// already covered by the snapshot
				if ev.Project == nil || ev.Project.Version <= sent {
					continue
				}
				if !ev.Project.IsParticipant(userID) {
					send("revoked", gin.H{"project_id": projectID, "at": ev.At})
					return
				}
				send("update", gin.H{"project": view(userID, ev.Project)})
				sent = ev.Project.Version
			}
		}
	}
}
