package api

import (
	"context"
	"fmt"
	"net/http"

	"brandcut/pipeline"
	"brandcut/publish"
	"brandcut/registry"

	"github.com/gin-gonic/gin"
)

// Runner is the pipeline as the transport sees it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Manifest
}

// StorageLister exposes the object store's listing contract. Nil when no
// storage is configured.
type StorageLister interface {
	List(ctx context.Context, prefix string) ([]publish.Object, error)
}

type Handler struct {
	runner Runner
	reg    *registry.Registry
	store  StorageLister
}

func NewHandler(runner Runner, reg *registry.Registry, store StorageLister) *Handler {
	return &Handler{runner: runner, reg: reg, store: store}
}

type SplitRequest struct {
	SourceURL              string `json:"sourceUrl" binding:"required"`
	SegmentDurationSeconds int    `json:"segmentDurationSeconds" binding:"required"`
	OverlapSeconds         int    `json:"overlapSeconds"`
	Title                  string `json:"title"`
	DestinationFolder      string `json:"destinationFolder"`
	Publish                *bool  `json:"publish"` // defaults to true
}

// handleSplit validates the request, then runs the pipeline synchronously
// and returns its manifest. Validation failures are rejected before any
// resource is allocated.
func (h *Handler) handleSplit(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SegmentDurationSeconds <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segmentDurationSeconds must be positive"})
		return
	}
	if req.OverlapSeconds < 0 || req.OverlapSeconds >= req.SegmentDurationSeconds {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("overlapSeconds must be in [0, %d)", req.SegmentDurationSeconds),
		})
		return
	}

	publishRequested := req.Publish == nil || *req.Publish
	if publishRequested && h.store == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publishing requested but no object storage is configured; set publish=false for local-only processing"})
		return
	}

	manifest := h.runner.Run(c.Request.Context(), pipeline.Request{
		SourceURL:         req.SourceURL,
		SegmentDuration:   float64(req.SegmentDurationSeconds),
		Overlap:           float64(req.OverlapSeconds),
		Title:             req.Title,
		DestinationFolder: req.DestinationFolder,
		Publish:           publishRequested,
	})

	status := http.StatusOK
	if !manifest.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, manifest)
}

// handleCleanup is the manual trigger for reclaiming every registered
// working directory.
func (h *Handler) handleCleanup(c *gin.Context) {
	h.reg.ReleaseAll()
	c.JSON(http.StatusOK, gin.H{"message": "cleanup completed"})
}

// handleListUploads lists published artifacts under a prefix.
func (h *Handler) handleListUploads(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no object storage is configured"})
		return
	}

	objects, err := h.store.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}
