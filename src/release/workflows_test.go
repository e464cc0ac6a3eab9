package release

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func newReleaseEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *Activities) {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	return env, &Activities{}
}

func TestReleaseWorkflowPublishes(t *testing.T) {
	env, a := newReleaseEnv(t)

	env.OnActivity(a.Preflight, mock.Anything).Return(nil).Once()
	// Two executables across two platforms: exactly four fetches.
	env.OnActivity(a.FetchArtifact, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(4)
	env.OnActivity(a.AssembleImage, mock.Anything, mock.Anything).
		Return("sha256:0011", nil).Times(2)
	env.OnActivity(a.PushImage, mock.Anything, mock.Anything).
		Return([]string{"n0computer/img:v0.1.0", "n0computer/img:latest"}, nil).Times(2)
	env.OnActivity(a.AnnounceRelease, mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(ReleaseWorkflow, Request{Version: "v0.1.0", BaseHash: "abc123", Publish: true})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result Result
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "v0.1.0", result.Version)
	require.Len(t, result.Digests, 2)
	require.Contains(t, result.Digests, "relay")
	require.Contains(t, result.Digests, "dns-server")
	require.Len(t, result.Pushed, 4)

	env.AssertExpectations(t)
}

func TestReleaseWorkflowNoPushWithoutPublish(t *testing.T) {
	env, a := newReleaseEnv(t)

	env.OnActivity(a.Preflight, mock.Anything).Return(nil).Once()
	env.OnActivity(a.FetchArtifact, mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(4)
	env.OnActivity(a.AssembleImage, mock.Anything, mock.Anything).Return("sha256:0011", nil).Times(2)

	env.ExecuteWorkflow(ReleaseWorkflow, Request{Version: "v0.1.0", BaseHash: "abc123", Publish: false})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result Result
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Empty(t, result.Pushed)

	env.AssertNotCalled(t, "PushImage", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "AnnounceRelease", mock.Anything, mock.Anything)
	env.AssertExpectations(t)
}

func TestReleaseWorkflowAbortsOnMissingArtifact(t *testing.T) {
	env, a := newReleaseEnv(t)

	env.OnActivity(a.Preflight, mock.Anything).Return(nil).Once()
	env.OnActivity(a.FetchArtifact, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("fetch iroh-relay-linux-amd64-nope: store: artifact missing")).Once()

	env.ExecuteWorkflow(ReleaseWorkflow, Request{Version: "v0.1.0", BaseHash: "nope", Publish: true})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	// The run must terminate before any image exists, let alone a tag.
	env.AssertNotCalled(t, "AssembleImage", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "PushImage", mock.Anything, mock.Anything)
}

func TestReleaseWorkflowAbortsOnFailedPreflight(t *testing.T) {
	env, a := newReleaseEnv(t)

	env.OnActivity(a.Preflight, mock.Anything).
		Return(errors.New("preflight: credential S3_ACCESS_KEY_ID is not set")).Once()

	env.ExecuteWorkflow(ReleaseWorkflow, Request{Version: "v0.1.0", BaseHash: "abc123", Publish: true})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "FetchArtifact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReleaseWorkflowRejectsEmptyInputs(t *testing.T) {
	for _, req := range []Request{
		{BaseHash: "abc123"},
		{Version: "v0.1.0"},
	} {
		env, _ := newReleaseEnv(t)
		env.ExecuteWorkflow(ReleaseWorkflow, req)
		require.True(t, env.IsWorkflowCompleted())
		require.Error(t, env.GetWorkflowError())
	}
}
