package command

import (
	"context"
	"errors"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// BULK UPDATE COMMAND
// Processes a batch of learning events in order. Items fail independently;
// the batch reports per-item outcomes instead of aborting on the first
// error.
// ══════════════════════════════════════════════════════════════════════════════

// BulkUpdateCommand contains the events to process.
type BulkUpdateCommand struct {
	// Items are the events, processed in slice order.
	Items []ProcessLearningEventCommand

	// CorrelationID for tracing, applied to items that carry none.
	CorrelationID string
}

// MaxBulkItems caps a single batch.
const MaxBulkItems = 100

// Validate validates the command.
func (c BulkUpdateCommand) Validate() error {
	if len(c.Items) == 0 {
		return errors.New("bulk_update: at least one item is required")
	}
	if len(c.Items) > MaxBulkItems {
		return fmt.Errorf("bulk_update: batch of %d exceeds the %d item limit", len(c.Items), MaxBulkItems)
	}
	return nil
}

// BulkItemError records a single failed item.
type BulkItemError struct {
	// Index is the item's position in the batch.
	Index int

	// StudentID and ConceptID identify the failed event.
	StudentID string
	ConceptID string

	// Message is the failure description.
	Message string
}

// BulkUpdateResult contains per-item outcomes.
type BulkUpdateResult struct {
	// Processed counts items that succeeded.
	Processed int

	// Failed counts items that did not.
	Failed int

	// Errors describes each failed item.
	Errors []BulkItemError

	// Results holds the per-item results, nil at failed positions.
	Results []*ProcessLearningEventResult
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// BulkUpdateHandler handles the BulkUpdateCommand.
type BulkUpdateHandler struct {
	process *ProcessLearningEventHandler
}

// NewBulkUpdateHandler creates a new BulkUpdateHandler.
func NewBulkUpdateHandler(process *ProcessLearningEventHandler) *BulkUpdateHandler {
	return &BulkUpdateHandler{process: process}
}

// Handle executes the bulk update command.
func (h *BulkUpdateHandler) Handle(ctx context.Context, cmd BulkUpdateCommand) (*BulkUpdateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("bulk_update: validation failed: %w", err)
	}

	result := &BulkUpdateResult{
		Results: make([]*ProcessLearningEventResult, len(cmd.Items)),
	}

	for i, item := range cmd.Items {
		if item.CorrelationID == "" {
			item.CorrelationID = cmd.CorrelationID
		}

		itemResult, err := h.process.Handle(ctx, item)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{
				Index:     i,
				StudentID: item.StudentID,
				ConceptID: item.ConceptID,
				Message:   err.Error(),
			})
			continue
		}

		result.Processed++
		result.Results[i] = itemResult
	}

	return result, nil
}
