package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
)

const DefaultTaskQueue = "notes-planning"

// Service runs planning turns on a Temporal worker and waits for the result.
type Service struct {
	client    client.Client
	taskQueue string
	newID     func() string
}

func NewService(client client.Client, taskQueue string) *Service {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Service{client: client, taskQueue: taskQueue, newID: uuid.NewString}
}

func (s *Service) PlanningTurn(ctx context.Context, ownerID string, input assistant.PlanInput) (assistant.PlanningResult, error) {
	return s.run(ctx, TurnInput{Kind: TurnPlan, OwnerID: ownerID, Plan: input})
}

func (s *Service) ConfirmTags(ctx context.Context, ownerID string, input assistant.ConfirmInput) (assistant.PlanningResult, error) {
	return s.run(ctx, TurnInput{Kind: TurnConfirm, OwnerID: ownerID, Plan: input.PlanInput, Tags: input.Tags})
}

func (s *Service) run(ctx context.Context, input TurnInput) (assistant.PlanningResult, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return assistant.PlanningResult{}, fmt.Errorf("%w: owner is required", assistant.ErrInvalidInput)
	}
	options := client.StartWorkflowOptions{
		ID:        workflowID(input.OwnerID, s.newID()),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, options, PlanningWorkflow, input)
	if err != nil {
		return assistant.PlanningResult{}, err
	}
	var result assistant.PlanningResult
	if err := run.Get(ctx, &result); err != nil {
		return assistant.PlanningResult{}, fromWorkflowError(err)
	}
	return result, nil
}

func workflowID(ownerID, turnID string) string {
	return fmt.Sprintf("planning:%s:%s", ownerID, turnID)
}
