package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lexlens-backend/models"
	"lexlens-backend/repository"
	"lexlens-backend/tools"

	"github.com/google/uuid"
)

var (
	ErrToolNotFound      = errors.New("analysis tool not found")
	ErrJobNotFound       = errors.New("analysis job not found")
	ErrJobCreationFailed = errors.New("failed to create analysis job")
	ErrMissingQuestion   = errors.New("question must not be empty")
)

// ContextRetriever supplies ranked chunk context for a question
type ContextRetriever interface {
	Retrieve(ctx context.Context, req RetrieveRequest) (*models.RequestContext, error)
}

// AnalysisService routes analysis requests to the registered tools
type AnalysisService struct {
	retriever ContextRetriever
	jobRepo   *repository.AnalysisJobRepository
	runner    *tools.Runner

	registry map[string]tools.Analyzer
	order    []string
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithRetriever sets the context retriever
func AnalysisWithRetriever(retriever ContextRetriever) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.retriever = retriever
	}
}

// AnalysisWithJobRepository sets the analysis job repository
func AnalysisWithJobRepository(repo *repository.AnalysisJobRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.jobRepo = repo
	}
}

// AnalysisWithTool registers an analysis tool. Registration order is
// preserved in tool listings.
func AnalysisWithTool(tool tools.Analyzer) AnalysisServiceOption {
	return func(s *AnalysisService) {
		name := tool.Name()
		if _, ok := s.registry[name]; !ok {
			s.order = append(s.order, name)
		}
		s.registry[name] = tool
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		runner:   tools.NewRunner(),
		registry: make(map[string]tools.Analyzer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteRequest represents a synchronous analysis request
type ExecuteRequest struct {
	ToolName   string
	Question   string
	DocumentID *uuid.UUID
	UserMode   models.UserMode
	Flags      map[string]bool
}

// Execute runs a tool synchronously and returns its result envelope.
// A retrieval failure degrades to an empty context so pattern tools can
// still answer; it never fails the request.
func (s *AnalysisService) Execute(ctx context.Context, req ExecuteRequest) (*models.ResultEnvelope, error) {
	tool, ok := s.registry[req.ToolName]
	if !ok {
		return nil, ErrToolNotFound
	}
	if req.Question == "" {
		return nil, ErrMissingQuestion
	}

	reqCtx := s.buildContext(ctx, req.Question, req.DocumentID, req.UserMode)
	reqCtx.FeatureFlags = req.Flags

	return s.runner.Execute(ctx, tool, reqCtx), nil
}

// buildContext retrieves chunk context for a question, falling back to an
// empty context when retrieval is unavailable or fails
func (s *AnalysisService) buildContext(
	ctx context.Context,
	question string,
	documentID *uuid.UUID,
	userMode models.UserMode,
) *models.RequestContext {
	if s.retriever != nil {
		reqCtx, err := s.retriever.Retrieve(ctx, RetrieveRequest{
			Question:   question,
			DocumentID: documentID,
			UserMode:   userMode,
		})
		if err == nil {
			return reqCtx
		}
		log.Printf("Warning: Failed to retrieve context: %v. Continuing with empty context.", err)
	}

	return &models.RequestContext{
		Question:         question,
		RetrievalResults: &models.RetrievalResults{},
		UserMode:         userMode,
	}
}

// ToolInfo describes a registered tool for listings
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// toolDescriptions maps tool names to their display descriptions
var toolDescriptions = map[string]string{
	"clause_finder":    "Findet und klassifiziert Vertragsklauseln",
	"deadline_scanner": "Erkennt Fristen und Termine im Vertrag",
	"pii_redactor":     "Findet und schwärzt personenbezogene Daten",
	"table_extractor":  "Extrahiert Tabellen und Finanzdaten",
	"redliner":         "Schlägt Verbesserungen für Vertragsklauseln vor",
	"letter_generator": "Erstellt formelle Schreiben zum Vertrag",
}

// ListTools returns the registered tools in registration order
func (s *AnalysisService) ListTools() []ToolInfo {
	infos := make([]ToolInfo, 0, len(s.order))
	for _, name := range s.order {
		infos = append(infos, ToolInfo{
			Name:        name,
			Description: toolDescriptions[name],
		})
	}
	return infos
}

// HealthCheck runs the self-test of a single tool
func (s *AnalysisService) HealthCheck(toolName string) (*models.HealthReport, error) {
	tool, ok := s.registry[toolName]
	if !ok {
		return nil, ErrToolNotFound
	}
	return tool.HealthCheck(), nil
}

// letterToolName is the tool used by the asynchronous letter flow
const letterToolName = "letter_generator"

// Job step names for letter generation
const (
	stepRetrieveContext = "Retrieving Contract Context"
	stepGenerateLetter  = "Generating Letter"
	stepAssembleResult  = "Assembling Result"
)

// GenerateLetterRequest represents a request to generate a letter asynchronously
type GenerateLetterRequest struct {
	Question   string
	DocumentID *uuid.UUID
	UserMode   models.UserMode
}

// GenerateLetterResult represents the result of creating a letter job
type GenerateLetterResult struct {
	JobID uuid.UUID
}

// GetJobStatusRequest represents a request to get job status
type GetJobStatusRequest struct {
	JobID uuid.UUID
}

// GetJobStatusResult represents the result of getting job status
type GetJobStatusResult struct {
	Job *models.AnalysisJob
}

// GenerateLetter creates a letter job and returns immediately.
// This method must complete in <100ms to avoid HTTP timeouts.
func (s *AnalysisService) GenerateLetter(
	ctx context.Context,
	req GenerateLetterRequest,
) (*GenerateLetterResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}
	if _, ok := s.registry[letterToolName]; !ok {
		return nil, ErrToolNotFound
	}
	if req.Question == "" {
		return nil, ErrMissingQuestion
	}

	job := &models.AnalysisJob{
		ID:       uuid.New(),
		ToolName: letterToolName,
		Question: req.Question,
		Status:   models.JobStatusPending,
		Steps: models.JobSteps{
			{Name: stepRetrieveContext, Status: "pending"},
			{Name: stepGenerateLetter, Status: "pending"},
			{Name: stepAssembleResult, Status: "pending"},
		},
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, ErrJobCreationFailed
	}

	return &GenerateLetterResult{JobID: job.ID}, nil
}

// GetJobStatus retrieves the status of an analysis job
func (s *AnalysisService) GetJobStatus(
	ctx context.Context,
	req GetJobStatusRequest,
) (*GetJobStatusResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("analysis job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, ErrJobNotFound
	}

	return &GetJobStatusResult{Job: job}, nil
}

// ProcessLetterJob performs the actual letter generation in the background.
// This method runs in a goroutine and can take up to a couple of minutes.
func (s *AnalysisService) ProcessLetterJob(
	ctx context.Context,
	jobID uuid.UUID,
	documentID *uuid.UUID,
	userMode models.UserMode,
) error {
	if s.jobRepo == nil {
		return errors.New("analysis job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load analysis job: %w", err)
	}

	tool, ok := s.registry[job.ToolName]
	if !ok {
		s.markJobFailed(ctx, jobID, "tool not registered: "+job.ToolName)
		return ErrToolNotFound
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	// 1. Retrieve context
	if err := s.updateStepStatus(ctx, jobID, stepRetrieveContext, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	reqCtx := s.buildContext(ctx, job.Question, documentID, userMode)

	if err := s.updateStepStatus(ctx, jobID, stepRetrieveContext, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 2. Generate the letter
	if err := s.updateStepStatus(ctx, jobID, stepGenerateLetter, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	envelope := s.runner.Execute(ctx, tool, reqCtx)
	if !envelope.Success {
		s.markJobFailed(ctx, jobID, "letter generation failed: "+envelope.Error)
		return fmt.Errorf("letter generation failed: %s", envelope.Error)
	}

	if err := s.updateStepStatus(ctx, jobID, stepGenerateLetter, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	// 3. Store the result
	if err := s.updateStepStatus(ctx, jobID, stepAssembleResult, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepAssembleResult, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.jobRepo.Complete(ctx, jobID, &models.JobResult{Envelope: envelope}); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

// updateStepStatus updates the status of a specific step in the analysis job
func (s *AnalysisService) updateStepStatus(ctx context.Context, jobID uuid.UUID, stepName, status string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	steps := job.Steps
	var currentStep string
	if job.CurrentStep != nil {
		currentStep = *job.CurrentStep
	}

	for i := range steps {
		if steps[i].Name == stepName {
			steps[i].Status = status
			if status == "in_progress" {
				currentStep = stepName
			}
			break
		}
	}

	return s.jobRepo.UpdateProgress(ctx, jobID, currentStep, steps)
}

// markJobFailed marks a job as failed with an error message
func (s *AnalysisService) markJobFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) {
	if err := s.jobRepo.Fail(ctx, jobID, errorMessage); err != nil {
		log.Printf("Warning: failed to mark job %s as failed: %v", jobID, err)
	}
}
