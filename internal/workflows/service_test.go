package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
)

func newTestService(c client.Client, taskQueue string) *Service {
	service := NewService(c, taskQueue)
	service.newID = func() string { return "turn-1" }
	return service
}

func TestNewService_DefaultTaskQueue(t *testing.T) {
	service := NewService(mocks.NewClient(t), "")
	assert.Equal(t, DefaultTaskQueue, service.taskQueue)
}

func TestPlanningTurn_ExecutesWorkflowAndWaits(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)
	input := assistant.PlanInput{Message: "Gym tomorrow", Lang: "en"}
	created := 1

	mockClient.On(
		"ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.ID == "planning:u1:turn-1" && opts.TaskQueue == "notes-test"
		}),
		mock.Anything,
		TurnInput{Kind: TurnPlan, OwnerID: "u1", Plan: input},
	).Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		out := args.Get(1).(*assistant.PlanningResult)
		*out = assistant.PlanningResult{Status: assistant.StatusCompleted, Text: "Added 1 event(s).", Created: &created}
	}).Return(nil)

	result, err := newTestService(mockClient, "notes-test").PlanningTurn(context.Background(), "u1", input)
	require.NoError(t, err)
	assert.Equal(t, assistant.StatusCompleted, result.Status)
	assert.Equal(t, 1, *result.Created)
}

func TestConfirmTags_SendsTags(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)
	input := assistant.ConfirmInput{PlanInput: assistant.PlanInput{Message: "x"}, Tags: []string{"Gym"}}

	mockClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything,
		TurnInput{Kind: TurnConfirm, OwnerID: "u1", Plan: input.PlanInput, Tags: []string{"Gym"}},
	).Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).Return(nil)

	_, err := newTestService(mockClient, "").ConfirmTags(context.Background(), "u1", input)
	require.NoError(t, err)
}

func TestPlanningTurn_StartError(t *testing.T) {
	mockClient := mocks.NewClient(t)
	expectedErr := errors.New("start failed")
	mockClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return((*mocks.WorkflowRun)(nil), expectedErr)

	_, err := newTestService(mockClient, "").PlanningTurn(context.Background(), "u1", assistant.PlanInput{Message: "x"})
	require.ErrorIs(t, err, expectedErr)
}

func TestPlanningTurn_MapsApplicationErrors(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)
	mockClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("invalid input: message is required", ErrTypeInvalidInput, nil))

	_, err := newTestService(mockClient, "").PlanningTurn(context.Background(), "u1", assistant.PlanInput{Message: "x"})
	require.ErrorIs(t, err, assistant.ErrInvalidInput)
	assert.Equal(t, "invalid input: message is required", err.Error())
}

func TestPlanningTurn_RequiresOwner(t *testing.T) {
	_, err := newTestService(mocks.NewClient(t), "").PlanningTurn(context.Background(), " ", assistant.PlanInput{Message: "x"})
	require.ErrorIs(t, err, assistant.ErrInvalidInput)
}

func TestFromWorkflowError(t *testing.T) {
	assert.NoError(t, fromWorkflowError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, fromWorkflowError(plain))

	rate := fromWorkflowError(temporal.NewNonRetryableApplicationError("limited", ErrTypeRateLimited, nil,
		llm.RateLimitError{Provider: "gemini", Message: "retry in 9s"}))
	var rateErr llm.RateLimitError
	require.ErrorAs(t, rate, &rateErr)
	assert.Equal(t, llm.RateLimitError{Provider: "gemini", Message: "retry in 9s"}, rateErr)

	bare := fromWorkflowError(temporal.NewNonRetryableApplicationError("retry in 4s", ErrTypeRateLimited, nil))
	assert.True(t, llm.IsRateLimited(bare))

	other := temporal.NewApplicationError("store down", "Other")
	assert.Equal(t, other, fromWorkflowError(other))
}

func TestToApplicationError(t *testing.T) {
	var appErr *temporal.ApplicationError

	err := toApplicationError(llm.RateLimitError{Provider: "openai", Message: "retry in 2s"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeRateLimited, appErr.Type())
	assert.True(t, appErr.NonRetryable())

	err = toApplicationError(assistant.ErrInvalidInput)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeInvalidInput, appErr.Type())

	plain := errors.New("db down")
	assert.Same(t, plain, toApplicationError(plain))
}
