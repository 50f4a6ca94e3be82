//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/quota"
)

func newQuotaService(t *testing.T, cfg config.QuotaConfig) *quota.Service {
	env := SetupTestEnv(t)
	env.ResetQuota(t)
	return quota.NewService(quota.NewPGStore(env.Pool), cfg)
}

// Concurrent reserves against the real row locks: with 5 remaining slots and
// 20 goroutines, exactly 5 succeed.
func TestQuota_NoDoubleSpendUnderConcurrency(t *testing.T) {
	svc := newQuotaService(t, config.QuotaConfig{
		UserDailyLimit: 5, DailyBudgetUSD: 10, ImageCostUSD: 0.04,
	})
	userID := uuid.New()

	const n = 20
	var mu sync.Mutex
	var allowed, denied int
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, denial, err := svc.Reserve(context.Background(), userID)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				allowed++
			}
			if denial != nil {
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
	assert.Equal(t, 15, denied)
}

func TestQuota_BudgetCapAcrossUsers(t *testing.T) {
	svc := newQuotaService(t, config.QuotaConfig{
		UserDailyLimit: 24, DailyBudgetUSD: 0.10, ImageCostUSD: 0.05,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, denial, err := svc.Reserve(ctx, uuid.New())
		require.NoError(t, err)
		require.Nil(t, denial)
		require.NotNil(t, res)
	}

	_, denial, err := svc.Reserve(ctx, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, denial)
	assert.Equal(t, quota.ReasonBudgetCap, denial.Reason)
}

func TestQuota_ConfirmAndReleaseRoundTrip(t *testing.T) {
	svc := newQuotaService(t, config.QuotaConfig{
		UserDailyLimit: 24, DailyBudgetUSD: 10, ImageCostUSD: 0.04,
	})
	ctx := context.Background()
	userID := uuid.New()

	res1, _, err := svc.Reserve(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, res1))

	res2, _, err := svc.Reserve(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, res2))

	st, err := svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Used)
	assert.Equal(t, 23, st.Remaining)
}
