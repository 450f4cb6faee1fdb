package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"proplens/internal/model"
)

// PropertyFetcher turns a listing URL into property facts.
type PropertyFetcher interface {
	Fetch(ctx context.Context, url string) (*model.PropertyRecord, error)
}

// DistanceProvider computes travel data for a property address.
type DistanceProvider interface {
	Snapshot(ctx context.Context, address string) (*model.DistanceSnapshot, error)
	IsEnabled() bool
}

// PropertyHandler handles listing fetch and enrichment requests
type PropertyHandler struct {
	fetcher   PropertyFetcher
	distances DistanceProvider
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(fetcher PropertyFetcher, distances DistanceProvider) *PropertyHandler {
	return &PropertyHandler{
		fetcher:   fetcher,
		distances: distances,
	}
}

// Initialize handles POST /api/v1/initialize. It fetches the listing
// and its distance data without creating a session. Fetch failures are
// reported in-body with status "error" so the client always receives a
// parseable result for a submitted URL.
func (h *PropertyHandler) Initialize(c *gin.Context) {
	var req model.InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	property, err := h.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusOK, model.InitializeResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	resp := model.InitializeResponse{
		Status:       "ready",
		PropertyData: property,
	}

	if h.distances != nil && h.distances.IsEnabled() {
		snapshot, err := h.distances.Snapshot(c.Request.Context(), property.Address)
		if err != nil {
			// Distance data is an enrichment; the listing itself is
			// still usable without it.
			log.Printf("⚠️ Distance snapshot failed for %s: %v", property.Address, err)
		} else if !snapshot.Empty() {
			resp.DistanceInfo = snapshot
		}
	}

	c.JSON(http.StatusOK, resp)
}
