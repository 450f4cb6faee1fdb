package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"proplens/internal/persona"
	"proplens/internal/service"
)

// statusForError maps service error kinds onto HTTP statuses. Unknown
// errors fall through to 500.
func statusForError(err error) int {
	var unknown *persona.ErrUnknown
	if errors.As(err, &unknown) {
		return http.StatusBadRequest
	}

	switch service.KindOf(err) {
	case service.KindConfiguration:
		return http.StatusBadRequest
	case service.KindSessionNotFound:
		return http.StatusNotFound
	case service.KindConcurrentAsk:
		return http.StatusConflict
	case service.KindSessionClosed:
		return http.StatusGone
	case service.KindGeneration, service.KindMalformedOutput, service.KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. The kind is included so clients
// can decide whether to retry without parsing messages.
func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if kind := service.KindOf(err); kind != "" {
		body["kind"] = kind
	}
	c.JSON(statusForError(err), body)
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

// setSSEHeaders prepares the response for streaming and returns the
// flusher, or false when the writer cannot stream.
func setSSEHeaders(c *gin.Context) (http.Flusher, bool) {
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Transfer-Encoding", "chunked")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return nil, false
	}
	return flusher, true
}
