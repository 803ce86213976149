package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

func TestBulkUpdateProcessesItemsIndependently(t *testing.T) {
	env := newProcessEnv(t)
	h := NewBulkUpdateHandler(env.handler)

	result, err := h.Handle(context.Background(), BulkUpdateCommand{
		Items: []ProcessLearningEventCommand{
			{StudentID: "student-1", ConceptID: "concept-a", Kind: shared.EventKindConceptStarted},
			// Concept events without a concept fail validation.
			{StudentID: "student-1", Kind: shared.EventKindConceptCompleted},
			{StudentID: "student-2", ConceptID: "concept-b", Kind: shared.EventKindConceptStarted},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "student-1", result.Errors[0].StudentID)

	require.Len(t, result.Results, 3)
	assert.NotNil(t, result.Results[0])
	assert.Nil(t, result.Results[1])
	assert.NotNil(t, result.Results[2])

	// The failed item did not block the later one.
	_, err = env.progress.GetByStudentAndConcept(context.Background(), "student-2", "concept-b")
	assert.NoError(t, err)
}

func TestBulkUpdateAppliesBatchCorrelationID(t *testing.T) {
	env := newProcessEnv(t)
	h := NewBulkUpdateHandler(env.handler)

	_, err := h.Handle(context.Background(), BulkUpdateCommand{
		CorrelationID: "batch-42",
		Items: []ProcessLearningEventCommand{
			{StudentID: "student-1", ConceptID: "concept-a", Kind: shared.EventKindConceptStarted},
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, env.publisher.events)
	statusEvent, ok := env.publisher.events[0].(shared.ConceptStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "batch-42", statusEvent.CorrelationID)
}

func TestBulkUpdateValidation(t *testing.T) {
	env := newProcessEnv(t)
	h := NewBulkUpdateHandler(env.handler)
	ctx := context.Background()

	_, err := h.Handle(ctx, BulkUpdateCommand{})
	assert.Error(t, err)

	oversized := make([]ProcessLearningEventCommand, MaxBulkItems+1)
	for i := range oversized {
		oversized[i] = ProcessLearningEventCommand{
			StudentID: fmt.Sprintf("student-%d", i),
			ConceptID: "concept-a",
			Kind:      shared.EventKindConceptStarted,
		}
	}
	_, err = h.Handle(ctx, BulkUpdateCommand{Items: oversized})
	assert.Error(t, err)
}
