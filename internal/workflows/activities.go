package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/logging"
)

const (
	ErrTypeRateLimited  = "RateLimited"
	ErrTypeInvalidInput = "InvalidInput"
)

type Planner interface {
	PlanningTurn(ctx context.Context, ownerID string, input assistant.PlanInput) (assistant.PlanningResult, error)
	ConfirmTags(ctx context.Context, ownerID string, input assistant.ConfirmInput) (assistant.PlanningResult, error)
}

type PlanningActivities struct {
	planner Planner
	logger  *zap.Logger
}

func NewPlanningActivities(planner Planner, logger *zap.Logger) *PlanningActivities {
	return &PlanningActivities{planner: planner, logger: logging.OrNop(logger)}
}

func (a *PlanningActivities) PlanningTurn(ctx context.Context, input TurnInput) (assistant.PlanningResult, error) {
	result, err := a.planner.PlanningTurn(ctx, input.OwnerID, input.Plan)
	if err != nil {
		a.logger.Warn("planning activity failed", zap.String("owner_id", input.OwnerID), zap.Error(err))
		return assistant.PlanningResult{}, toApplicationError(err)
	}
	return result, nil
}

func (a *PlanningActivities) ConfirmTags(ctx context.Context, input TurnInput) (assistant.PlanningResult, error) {
	result, err := a.planner.ConfirmTags(ctx, input.OwnerID, assistant.ConfirmInput{PlanInput: input.Plan, Tags: input.Tags})
	if err != nil {
		a.logger.Warn("confirm activity failed", zap.String("owner_id", input.OwnerID), zap.Error(err))
		return assistant.PlanningResult{}, toApplicationError(err)
	}
	return result, nil
}

// toApplicationError tags the failure kinds callers branch on so they
// survive serialization through the Temporal server.
func toApplicationError(err error) error {
	var rateErr llm.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRateLimited, nil, rateErr)
	case errors.Is(err, assistant.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, nil)
	default:
		return err
	}
}

// fromWorkflowError maps tagged application errors back to the domain errors.
func fromWorkflowError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case ErrTypeRateLimited:
		var rateErr llm.RateLimitError
		if appErr.HasDetails() && appErr.Details(&rateErr) == nil && rateErr.Provider != "" {
			return rateErr
		}
		return llm.RateLimitError{Provider: "unknown", Message: appErr.Message()}
	case ErrTypeInvalidInput:
		message := strings.TrimPrefix(appErr.Message(), assistant.ErrInvalidInput.Error()+": ")
		return fmt.Errorf("%w: %s", assistant.ErrInvalidInput, message)
	default:
		return err
	}
}
