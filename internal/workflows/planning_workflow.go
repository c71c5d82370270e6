package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
)

const (
	ActivityPlanningTurn = "PlanningTurn"
	ActivityConfirmTags  = "ConfirmTags"
)

type TurnKind string

const (
	TurnPlan    TurnKind = "plan"
	TurnConfirm TurnKind = "confirm"
)

// TurnInput carries one planning or confirm turn through Temporal.
type TurnInput struct {
	Kind    TurnKind
	OwnerID string
	Plan    assistant.PlanInput
	Tags    []string
}

// PlanningWorkflow runs a single turn as one activity attempt. The turn is
// not idempotent, so a failed attempt is reported instead of replayed.
func PlanningWorkflow(ctx workflow.Context, input TurnInput) (assistant.PlanningResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	logger := workflow.GetLogger(ctx)

	activityName := ActivityPlanningTurn
	if input.Kind == TurnConfirm {
		activityName = ActivityConfirmTags
	}

	var result assistant.PlanningResult
	if err := workflow.ExecuteActivity(ctx, activityName, input).Get(ctx, &result); err != nil {
		logger.Error("planning turn failed", "owner_id", input.OwnerID, "kind", input.Kind, "error", err)
		return assistant.PlanningResult{}, err
	}
	logger.Info("planning turn finished", "owner_id", input.OwnerID, "status", result.Status)
	return result, nil
}
