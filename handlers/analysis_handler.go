package handlers

import (
	"context"
	"log"
	"net/http"

	"lexlens-backend/models"
	"lexlens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AnalysisHandler handles HTTP requests for contract analysis
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// AnalyzeRequest represents the request body for running a tool
type AnalyzeRequest struct {
	Question     string          `json:"question" binding:"required"`
	DocumentID   *string         `json:"document_id"`
	UserMode     string          `json:"user_mode"`
	FeatureFlags map[string]bool `json:"feature_flags"`
}

// Analyze handles POST /api/analyze/:tool
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	toolName := c.Param("tool")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	var documentID *uuid.UUID
	if req.DocumentID != nil {
		id, err := uuid.Parse(*req.DocumentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_DOCUMENT_ID",
					"message": "Invalid document_id format",
				},
			})
			return
		}
		documentID = &id
	}

	serviceReq := service.ExecuteRequest{
		ToolName:   toolName,
		Question:   req.Question,
		DocumentID: documentID,
		UserMode:   models.UserMode(req.UserMode),
		Flags:      req.FeatureFlags,
	}

	envelope, err := h.analysisService.Execute(c.Request.Context(), serviceReq)
	if err != nil {
		if err == service.ErrToolNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOOL_NOT_FOUND",
					"message": "Unknown analysis tool: " + toolName,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ANALYSIS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// A failed tool run is still a well-formed envelope, not an HTTP error
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    envelope,
	})
}

// ListTools handles GET /api/tools
func (h *AnalysisHandler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.analysisService.ListTools(),
	})
}

// ToolHealth handles GET /api/tools/:tool/health
func (h *AnalysisHandler) ToolHealth(c *gin.Context) {
	toolName := c.Param("tool")

	report, err := h.analysisService.HealthCheck(toolName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOOL_NOT_FOUND",
				"message": "Unknown analysis tool: " + toolName,
			},
		})
		return
	}

	status := http.StatusOK
	if report.Status != models.HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success": true,
		"data":    report,
	})
}

// GenerateLetterRequest represents the request body for letter generation
type GenerateLetterRequest struct {
	Question   string  `json:"question" binding:"required"`
	DocumentID *string `json:"document_id"`
	UserMode   string  `json:"user_mode"`
}

// GenerateLetter handles POST /api/letters/generate
func (h *AnalysisHandler) GenerateLetter(c *gin.Context) {
	var req GenerateLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	var documentID *uuid.UUID
	if req.DocumentID != nil {
		id, err := uuid.Parse(*req.DocumentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_DOCUMENT_ID",
					"message": "Invalid document_id format",
				},
			})
			return
		}
		documentID = &id
	}

	userMode := models.UserMode(req.UserMode)

	serviceReq := service.GenerateLetterRequest{
		Question:   req.Question,
		DocumentID: documentID,
		UserMode:   userMode,
	}

	// Create job (synchronous, fast)
	result, err := h.analysisService.GenerateLetter(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// Spawn background goroutine for actual processing
	// Use background context (not request context) to avoid cancellation
	go func() {
		bgCtx := context.Background()
		if err := h.analysisService.ProcessLetterJob(bgCtx, result.JobID, documentID, userMode); err != nil {
			// Error is logged and stored in job.ErrorMessage
			// No need to return to HTTP client (they'll poll status)
			log.Printf("Letter job %s failed: %v", result.JobID, err)
		}
	}()

	// Return immediately (within 100ms)
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"job_id":  result.JobID,
			"status":  "pending",
			"message": "Letter job created. Poll /api/jobs/:id for updates.",
		},
	})
}

// GetJobStatus handles GET /api/jobs/:id
func (h *AnalysisHandler) GetJobStatus(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	serviceReq := service.GetJobStatusRequest{
		JobID: id,
	}

	result, err := h.analysisService.GetJobStatus(c.Request.Context(), serviceReq)
	if err != nil {
		if err == service.ErrJobNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis job not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Job,
	})
}
