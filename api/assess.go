package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
	"github.com/gin-gonic/gin"
)

// AssessRequest is the body of POST /api/assess
type AssessRequest struct {
	Transcript string                      `json:"transcript" binding:"required"`
	Checklist  []checklist.CheckDefinition `json:"checklist,omitempty"`
	Config     json.RawMessage             `json:"config,omitempty"`
	Facts      checklist.Facts             `json:"facts,omitempty"`
}

// assessTimeout bounds a synchronous assessment
const assessTimeout = 5 * time.Minute

// Assess handles POST /api/assess. It runs the pipeline inline and returns
// the merged assessment.
func (h *Handlers) Assess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, "invalid request body", []ErrorDetail{{Message: err.Error()}})
		return
	}

	cl := h.server.Checklist()
	if len(req.Checklist) > 0 {
		inline, err := checklist.New("request", req.Checklist)
		if err != nil {
			RespondValidationError(c, "invalid checklist", []ErrorDetail{{Field: "checklist", Message: err.Error()}})
			return
		}
		cl = inline
	}

	// Settings the request leaves out keep the service defaults
	var chunking *assessment.ChunkConfig
	if len(req.Config) > 0 {
		overlaid, err := h.server.Pipeline().Config().Chunking.Overlay(req.Config)
		if err != nil {
			respondAssessError(c, err)
			return
		}
		chunking = &overlaid
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), assessTimeout)
	defer cancel()

	report, err := h.server.Pipeline().Assess(ctx, assessment.Request{
		Transcript: req.Transcript,
		Checklist:  cl,
		Chunking:   chunking,
		Facts:      req.Facts,
	})
	if err != nil {
		respondAssessError(c, err)
		return
	}

	if report.ExamplesErr != nil {
		logger.Warn().Err(report.ExamplesErr).Msg("assessed without reference examples")
	}
	RespondData(c, report)
}

// respondAssessError maps pipeline failures onto HTTP statuses
func respondAssessError(c *gin.Context, err error) {
	var cfgErr *assessment.ConfigurationError
	var chunkErr *assessment.ChunkError

	switch {
	case errors.As(err, &cfgErr):
		RespondValidationError(c, "invalid configuration", []ErrorDetail{{Field: cfgErr.Field, Message: cfgErr.Reason}})
	case errors.Is(err, assessment.ErrMalformedOutput):
		RespondUpstreamError(c, ErrCodeUpstreamMalformed, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		RespondTimeout(c, "assessment timed out")
	case errors.Is(err, context.Canceled):
		// Client went away
		c.Abort()
	case errors.As(err, &chunkErr):
		logger.Error().Err(err).Int("chunk", chunkErr.Index).Msg("assessment failed")
		RespondUpstreamError(c, ErrCodeUpstream, fmt.Sprintf("language model call failed for chunk %d", chunkErr.Index))
	default:
		logger.Error().Err(err).Msg("assessment failed")
		RespondInternalError(c, "assessment failed")
	}
}

// ChecklistItem is one check as exposed by GET /api/checklist
type ChecklistItem struct {
	checklist.CheckDefinition
	Label string `json:"label"`
}

// ChecklistResponse is the body of GET /api/checklist
type ChecklistResponse struct {
	Name    string          `json:"name"`
	Version string          `json:"version,omitempty"`
	Checks  []ChecklistItem `json:"checks"`
}

// GetChecklist handles GET /api/checklist
func (h *Handlers) GetChecklist(c *gin.Context) {
	cl := h.server.Checklist()
	resp := ChecklistResponse{Name: cl.Name, Version: cl.Version}
	for _, def := range cl.Checks() {
		resp.Checks = append(resp.Checks, ChecklistItem{CheckDefinition: def, Label: def.Label()})
	}
	RespondData(c, resp)
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	RespondData(c, gin.H{"status": "ok"})
}
