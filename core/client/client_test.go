package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/client/enginetest"
	"github.com/dronreef2/3dPot2-sub000/core/models"
)

func dropRequest() *models.CreateRequest {
	return &models.CreateRequest{
		ModelID: "model-1",
		Name:    "phone case drop",
		Kind:    models.KindDropTest,
		Parameters: map[string]interface{}{
			"drop_height": 1.0,
			"num_drops":   5,
			"gravity":     -9.8,
		},
	}
}

func TestCreate_ReturnsPendingJob(t *testing.T) {
	engine := enginetest.New()
	defer engine.Close()
	c := client.New(engine.URL(), "")

	job, err := c.Create(context.Background(), dropRequest())
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.StatusPending, job.Status)
	require.Equal(t, models.KindDropTest, job.Kind)
}

func TestCreate_UnknownKindIsAPIError(t *testing.T) {
	engine := enginetest.New()
	defer engine.Close()
	c := client.New(engine.URL(), "")

	_, err := c.Create(context.Background(), &models.CreateRequest{Kind: "thermal"})
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "want *client.APIError, got %T", err)
	require.Equal(t, 400, apiErr.StatusCode)
	require.NotEmpty(t, apiErr.Message)
}

func TestAuthFailure_IsDistinctError(t *testing.T) {
	engine := enginetest.New()
	engine.AuthToken = "good-token"
	defer engine.Close()

	c := client.New(engine.URL(), "stale-token")
	_, err := c.Get(context.Background(), "whatever")
	require.Error(t, err)
	require.True(t, client.IsAuthError(err), "want AuthError, got %T: %v", err, err)
}

func TestGetResults_BeforeCompletionFails(t *testing.T) {
	engine := enginetest.New()
	engine.StepInterval = time.Hour // freeze the script
	defer engine.Close()
	c := client.New(engine.URL(), "")

	job, err := c.Create(context.Background(), dropRequest())
	require.NoError(t, err)

	_, err = c.GetResults(context.Background(), job.ID)
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	require.Equal(t, 409, apiErr.StatusCode)
}

func TestDelete_RemovesJob(t *testing.T) {
	engine := enginetest.New()
	engine.StepInterval = time.Hour
	defer engine.Close()
	c := client.New(engine.URL(), "")

	job, err := c.Create(context.Background(), dropRequest())
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), job.ID))

	_, err = c.Get(context.Background(), job.ID)
	require.Error(t, err)
}

func TestListHistory_FiltersByStatus(t *testing.T) {
	engine := enginetest.New()
	engine.StepInterval = time.Millisecond
	defer engine.Close()
	c := client.New(engine.URL(), "")

	job, err := c.Create(context.Background(), dropRequest())
	require.NoError(t, err)

	// Wait for the scripted run to finish.
	require.Eventually(t, func() bool {
		j := engine.Job(job.ID)
		return j != nil && j.Status == models.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	completed, err := c.ListHistory(context.Background(), models.HistoryFilters{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	failed, err := c.ListHistory(context.Background(), models.HistoryFilters{Status: models.StatusFailed})
	require.NoError(t, err)
	require.Empty(t, failed)
}

func TestCompare_EchoesJobIDs(t *testing.T) {
	engine := enginetest.New()
	defer engine.Close()
	c := client.New(engine.URL(), "")

	cmp, err := c.Compare(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, cmp.JobIDs)
	require.Contains(t, cmp.Metrics, "a")
}
