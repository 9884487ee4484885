package SSE

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// Stream writes sub's snapshots to the client until it disconnects or the hub
// drops the subscription.
func Stream(c *gin.Context, hub *Hub, sub *Subscription) {
	defer hub.Unsubscribe(sub)
	// streams outlive the server's write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: %q\n\n", sub.Path())
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case message := <-sub.Events():
			fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", message)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-sub.Done():
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
