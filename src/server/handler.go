package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Protocol-Lattice/quizbot/src/logger"
	"github.com/Protocol-Lattice/quizbot/src/pipeline"
)

// Handler runs one form request. *pipeline.Pipeline satisfies it.
type Handler interface {
	Handle(ctx context.Context, rawURL string, reply pipeline.Replier) error
}

type SolveRequest struct {
	URL string `json:"url" binding:"required"`
}

type SolveResponse struct {
	Answer string `json:"answer"`
}

type SolveHandler struct {
	pipeline Handler
	log      *logger.Logger
}

func NewSolveHandler(p Handler, log *logger.Logger) *SolveHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SolveHandler{pipeline: p, log: log}
}

// Solve runs the pipeline for the posted URL and returns the answer text
// without the chat prefix.
func (h *SolveHandler) Solve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	var out collector
	err := h.pipeline.Handle(c.Request.Context(), rawURL, &out)
	if err != nil {
		status := statusFor(err)
		h.log.Warn("solve request failed", "url", rawURL, "status", status, "error", err)
		c.JSON(status, gin.H{"error": out.last()})
		return
	}
	c.JSON(http.StatusOK, SolveResponse{Answer: strings.TrimPrefix(out.last(), pipeline.SuccessPrefix)})
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Stage {
	case pipeline.StageFetch, pipeline.StageGenerate:
		return http.StatusBadGateway
	case pipeline.StageExtract, pipeline.StageFormat:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// collector keeps the final non-progress reply of one request.
type collector struct {
	mu   sync.Mutex
	text string
}

func (c *collector) Reply(_ context.Context, text string) error {
	if text == pipeline.MsgWaiting {
		return nil
	}
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	return nil
}

func (c *collector) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
