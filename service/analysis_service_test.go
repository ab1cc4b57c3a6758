package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexlens-backend/models"
	"lexlens-backend/rules"
	"lexlens-backend/tools"
)

type fakeRetriever struct {
	reqCtx *models.RequestContext
	err    error
	calls  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, req RetrieveRequest) (*models.RequestContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reqCtx, nil
}

func newTestService(retriever ContextRetriever) *AnalysisService {
	ruleSet := rules.Default()
	return NewAnalysisService(
		AnalysisWithRetriever(retriever),
		AnalysisWithTool(tools.NewClauseFinder(ruleSet)),
		AnalysisWithTool(tools.NewDeadlineScanner(ruleSet)),
		AnalysisWithTool(tools.NewPIIRedactor(ruleSet)),
		AnalysisWithTool(tools.NewTableExtractor(ruleSet)),
		AnalysisWithTool(tools.NewRedliner(ruleSet)),
		AnalysisWithTool(tools.NewLetterGenerator(ruleSet)),
	)
}

func TestAnalysisServiceExecute(t *testing.T) {
	retriever := &fakeRetriever{
		reqCtx: &models.RequestContext{
			Question: "Wie kann ich kündigen?",
			RetrievalResults: &models.RetrievalResults{
				Results: []models.TextChunk{
					{ChunkID: "c1", Text: "Die Kündigung muss schriftlich erfolgen.", Score: 0.9},
				},
			},
		},
	}
	svc := newTestService(retriever)

	envelope, err := svc.Execute(context.Background(), ExecuteRequest{
		ToolName: "clause_finder",
		Question: "Wie kann ich kündigen?",
	})
	require.NoError(t, err)

	assert.True(t, envelope.Success)
	assert.Equal(t, "clause_finder", envelope.Metadata.ToolName)
	assert.Equal(t, 1, retriever.calls)
}

func TestAnalysisServiceExecuteUnknownTool(t *testing.T) {
	svc := newTestService(&fakeRetriever{})

	_, err := svc.Execute(context.Background(), ExecuteRequest{
		ToolName: "unknown_tool",
		Question: "Frage",
	})
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestAnalysisServiceExecuteEmptyQuestion(t *testing.T) {
	svc := newTestService(&fakeRetriever{})

	_, err := svc.Execute(context.Background(), ExecuteRequest{
		ToolName: "clause_finder",
	})
	assert.ErrorIs(t, err, ErrMissingQuestion)
}

func TestAnalysisServiceExecuteRetrievalFailureDegrades(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("database unavailable")}
	svc := newTestService(retriever)

	envelope, err := svc.Execute(context.Background(), ExecuteRequest{
		ToolName: "deadline_scanner",
		Question: "Welche Fristen gibt es?",
	})
	require.NoError(t, err)

	// the tool still runs against an empty context
	assert.True(t, envelope.Success)
	assert.Equal(t, 1, retriever.calls)
}

func TestAnalysisServiceListTools(t *testing.T) {
	svc := newTestService(&fakeRetriever{})

	infos := svc.ListTools()
	require.Len(t, infos, 6)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		assert.NotEmpty(t, info.Description, "description for %s", info.Name)
	}
	assert.Equal(t, []string{
		"clause_finder",
		"deadline_scanner",
		"pii_redactor",
		"table_extractor",
		"redliner",
		"letter_generator",
	}, names)
}

func TestAnalysisServiceHealthCheck(t *testing.T) {
	svc := newTestService(&fakeRetriever{})

	report, err := svc.HealthCheck("pii_redactor")
	require.NoError(t, err)
	assert.Equal(t, models.HealthStatusHealthy, report.Status)

	_, err = svc.HealthCheck("nope")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestAnalysisServiceGenerateLetterRequiresRepository(t *testing.T) {
	svc := newTestService(&fakeRetriever{})

	_, err := svc.GenerateLetter(context.Background(), GenerateLetterRequest{
		Question: "Ich möchte kündigen",
	})
	assert.Error(t, err)
}
