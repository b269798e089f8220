package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/agor/internal/ports"
)

// SubmitRunRequest is a task submission.
type SubmitRunRequest struct {
	Task string `json:"task" binding:"required"`
}

// SubmitRunResponse acknowledges a submission.
type SubmitRunResponse struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"checks": gin.H{
			"orchestrator": "ok",
		},
	})
}

func (s *Server) handleSubmitRun(c *gin.Context) {
	var req SubmitRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	runID, err := s.manager.SubmitRun(c.Request.Context(), req.Task)
	if err != nil {
		s.logger.Error("failed to submit run", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{Code: "SUBMISSION_FAILED", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusCreated, SubmitRunResponse{
		RunID:       runID,
		Status:      "submitted",
		SubmittedAt: time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	records, err := s.manager.ListRuns(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "LIST_FAILED", Message: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  records,
		"total": len(records),
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	record, err := s.manager.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondNotFound(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleGetResult(c *gin.Context) {
	record, err := s.manager.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondNotFound(c, err)
		return
	}

	if !record.Status.Terminal() {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_COMPLETED", Message: "run has not finished yet"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": record.ID,
		"status": record.Status,
		"output": record.Output,
	})
}

func (s *Server) handleCancelRun(c *gin.Context) {
	if err := s.manager.CancelRun(c.Request.Context(), c.Param("id")); err != nil {
		s.respondNotFound(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (s *Server) respondNotFound(c *gin.Context, err error) {
	if errors.Is(err, ports.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: "run not found"},
		})
		return
	}
	s.logger.Error("run lookup failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{Code: "INTERNAL", Message: err.Error()},
	})
}
