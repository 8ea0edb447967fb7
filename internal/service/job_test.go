package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glasskite/darkroom/internal/data"
	"github.com/glasskite/darkroom/internal/domain/model"
	apperrors "github.com/glasskite/darkroom/internal/errors"
	"github.com/glasskite/darkroom/internal/mocks"
	"github.com/glasskite/darkroom/internal/testutil"
)

type jobServiceDeps struct {
	ledger     *mocks.MockLedger
	jobs       *mocks.MockJobStore
	dispatcher *mocks.MockDispatcher
	urlCheck   *mocks.MockURLChecker
}

func newTestJobService(t *testing.T) (*JobService, jobServiceDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := jobServiceDeps{
		ledger:     mocks.NewMockLedger(ctrl),
		jobs:       mocks.NewMockJobStore(ctrl),
		dispatcher: mocks.NewMockDispatcher(ctrl),
		urlCheck:   mocks.NewMockURLChecker(ctrl),
	}
	svc := MustNewJobService(JobServiceOptions{
		Ledger:     deps.ledger,
		Jobs:       deps.jobs,
		Dispatcher: deps.dispatcher,
		URLCheck:   deps.urlCheck,
		BaseURL:    "https://api.darkroom.example",
	})
	return svc, deps
}

func testAuth() *model.AuthContext {
	return &model.AuthContext{UserID: "user-1", APIKeyID: "key-1", WebhookSecret: "whsec"}
}

func TestJobService_CreateJob_Success(t *testing.T) {
	svc, deps := newTestJobService(t)
	req := testutil.NewJobRequest().Build()
	admitted := &model.Job{
		ID:        "job-1",
		UserID:    "user-1",
		Status:    model.JobStatusQueued,
		CreatedAt: testutil.TestTime(),
	}

	deps.urlCheck.EXPECT().Validate(gomock.Any(), req.ImageURL).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), req.WebhookURL).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", req).Return(admitted, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), admitted).Return(nil)

	resp, err := svc.CreateJob(context.Background(), testAuth(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, model.JobStatusQueued, resp.Status)
	assert.Equal(t, "https://api.darkroom.example/v1/jobs/job-1", resp.StatusURL)
	assert.Equal(t, testutil.TestTime(), resp.CreatedAt)
}

func TestJobService_CreateJob_ValidationFailsFast(t *testing.T) {
	svc, _ := newTestJobService(t)

	_, err := svc.CreateJob(context.Background(), testAuth(), &model.CreateJobRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobService_CreateJob_RejectsUnsafeURL(t *testing.T) {
	svc, deps := newTestJobService(t)
	req := testutil.NewJobRequest().WithImageURL("https://internal.example/img.jpg").Build()

	deps.urlCheck.EXPECT().Validate(gomock.Any(), req.ImageURL).
		Return(errors.New("host resolves to disallowed address"))

	_, err := svc.CreateJob(context.Background(), testAuth(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "imageUrl rejected")
}

func TestJobService_CreateJob_MapsAdmissionErrors(t *testing.T) {
	tests := []struct {
		name     string
		admitErr error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "concurrency limit carries counts",
			admitErr: &data.ConcurrencyLimitError{Limit: 1, Count: 1},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsTooManyRequests(err))
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, 1, appErr.Metadata["limit"])
				assert.Equal(t, 1, appErr.Metadata["current"])
			},
		},
		{
			name:     "insufficient credits",
			admitErr: data.ErrInsufficientCredits,
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsPaymentRequired(err))
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, "INSUFFICIENT_CREDITS", appErr.Metadata["code"])
			},
		},
		{
			name:     "unknown user",
			admitErr: data.ErrUserNotFound,
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestJobService(t)
			req := testutil.NewJobRequest().Build()

			deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
			deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
			deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", req).Return(nil, tt.admitErr)

			_, err := svc.CreateJob(context.Background(), testAuth(), req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestJobService_CreateJob_DispatchFailureCompensates(t *testing.T) {
	svc, deps := newTestJobService(t)
	req := testutil.NewJobRequest().Build()
	admitted := &model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusQueued}

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", req).Return(admitted, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), admitted).
		Return(errors.New("connection refused"))
	deps.ledger.EXPECT().CompensateDispatchFailure(gomock.Any(), "user-1", "job-1",
		"DISPATCH_FAILED", gomock.Any()).Return(nil)

	_, err := svc.CreateJob(context.Background(), testAuth(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestJobService_CreateJob_CompensationFailureIsInternal(t *testing.T) {
	svc, deps := newTestJobService(t)
	req := testutil.NewJobRequest().Build()
	admitted := &model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusQueued}

	deps.urlCheck.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(nil)
	deps.urlCheck.EXPECT().ValidateHTTPS(gomock.Any(), gomock.Any()).Return(nil)
	deps.ledger.EXPECT().Admit(gomock.Any(), "user-1", req).Return(admitted, nil)
	deps.dispatcher.EXPECT().Dispatch(gomock.Any(), admitted).Return(errors.New("boom"))
	deps.ledger.EXPECT().CompensateDispatchFailure(gomock.Any(), "user-1", "job-1",
		"DISPATCH_FAILED", gomock.Any()).Return(errors.New("db down"))

	_, err := svc.CreateJob(context.Background(), testAuth(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
}

func TestJobService_GetJob(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		now := time.Now().UTC()
		resultURL := "https://results.example.com/out.jpg"
		deps.jobs.EXPECT().GetByIDForUser(gomock.Any(), "job-1", "user-1").Return(&model.Job{
			ID:          "job-1",
			UserID:      "user-1",
			Status:      model.JobStatusCompleted,
			CreatedAt:   now,
			ResultURL:   &resultURL,
			CompletedAt: &now,
		}, nil)

		resp, err := svc.GetJob(context.Background(), "user-1", "job-1")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, resp.Status)
		require.NotNil(t, resp.ResultURL)
		assert.Equal(t, resultURL, *resp.ResultURL)
	})

	t.Run("not found or not owned", func(t *testing.T) {
		svc, deps := newTestJobService(t)
		deps.jobs.EXPECT().GetByIDForUser(gomock.Any(), "job-1", "user-1").
			Return(nil, data.ErrJobNotFound)

		_, err := svc.GetJob(context.Background(), "user-1", "job-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
