package subscription

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if sub := args.Get(0); sub != nil {
		return sub.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockRepo) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockRepo) ResetSubscriptionCycle(ctx context.Context, userUID, monthYear string) error {
	args := m.Called(ctx, userUID, monthYear)
	return args.Error(0)
}

func (m *mockRepo) IncrementInvoiceCount(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) ResetInvoiceCount(ctx context.Context, userUID string) error {
	args := m.Called(ctx, userUID)
	return args.Error(0)
}

func newTestService(repo *mockRepo, now time.Time) *Service {
	svc := New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestGetOrCreate_CreatesFreeSubscription(t *testing.T) {
	now := date(2024, time.March, 15)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").
		Return(nil, repository.ErrSubscriptionNotFound)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.UserUID == "user-1" &&
			sub.Tier == models.TierFree &&
			sub.InvoiceLimit == models.FreeTierLimit &&
			sub.CurrentMonthCount == 0 &&
			sub.SubscriptionEndDate == nil &&
			sub.MonthYear == "2024-03-15"
	})).Return(nil)

	svc := newTestService(repo, now)
	sub, err := svc.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, sub.Tier)
	repo.AssertExpectations(t)
}

func TestEnsureCurrentCycle_RepairsStaleCycle(t *testing.T) {
	anchor := date(2024, time.January, 15)
	repo := new(mockRepo)
	repo.On("ResetSubscriptionCycle", mock.Anything, "user-1", "2024-02-15").Return(nil)

	svc := newTestService(repo, date(2024, time.February, 20))
	sub := &models.Subscription{
		UserUID:               "user-1",
		Tier:                  models.TierFree,
		InvoiceLimit:          models.FreeTierLimit,
		CurrentMonthCount:     7,
		SubscriptionStartDate: anchor,
		MonthYear:             "2024-01-15",
	}

	sub, err := svc.EnsureCurrentCycle(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.CurrentMonthCount)
	assert.Equal(t, "2024-02-15", sub.MonthYear)
	repo.AssertExpectations(t)
}

func TestEnsureCurrentCycle_NoopWhenFresh(t *testing.T) {
	anchor := date(2024, time.January, 15)
	repo := new(mockRepo)

	svc := newTestService(repo, date(2024, time.January, 20))
	sub := &models.Subscription{
		UserUID:               "user-1",
		CurrentMonthCount:     7,
		SubscriptionStartDate: anchor,
		MonthYear:             "2024-01-15",
	}

	sub, err := svc.EnsureCurrentCycle(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 7, sub.CurrentMonthCount)
	repo.AssertNotCalled(t, "ResetSubscriptionCycle", mock.Anything, mock.Anything, mock.Anything)
}

func TestCanGenerateInvoice(t *testing.T) {
	anchor := date(2024, time.March, 1)
	cases := []struct {
		name  string
		count int
		limit int
		want  bool
	}{
		{name: "below limit", count: 9, limit: 10, want: true},
		{name: "at limit", count: 10, limit: 10, want: false},
		{name: "above limit after downgrade", count: 150, limit: 10, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
				UserUID:               "user-1",
				Tier:                  models.TierFree,
				InvoiceLimit:          tc.limit,
				CurrentMonthCount:     tc.count,
				SubscriptionStartDate: anchor,
				MonthYear:             "2024-03-01",
			}, nil)

			svc := newTestService(repo, date(2024, time.March, 10))
			ok, err := svc.CanGenerateInvoice(context.Background(), "user-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestIncrementInvoiceCount_RepairsCycleFirst(t *testing.T) {
	anchor := date(2024, time.January, 15)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
		UserUID:               "user-1",
		InvoiceLimit:          models.FreeTierLimit,
		CurrentMonthCount:     10,
		SubscriptionStartDate: anchor,
		MonthYear:             "2024-01-15",
	}, nil)
	repo.On("ResetSubscriptionCycle", mock.Anything, "user-1", "2024-02-15").Return(nil)
	repo.On("IncrementInvoiceCount", mock.Anything, "user-1").Return(1, nil)

	svc := newTestService(repo, date(2024, time.February, 20))
	count, err := svc.IncrementInvoiceCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	repo.AssertExpectations(t)
}

func TestUpgrade_UnknownTier(t *testing.T) {
	svc := newTestService(new(mockRepo), date(2024, time.March, 1))
	err := svc.Upgrade(context.Background(), "user-1", "platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestUpgrade_FreshStartWhenExpired(t *testing.T) {
	now := date(2024, time.March, 1)
	oldEnd := date(2024, time.January, 20)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
		UserUID:               "user-1",
		Tier:                  models.TierFree,
		InvoiceLimit:          models.FreeTierLimit,
		CurrentMonthCount:     4,
		SubscriptionStartDate: date(2023, time.December, 21),
		SubscriptionEndDate:   &oldEnd,
		MonthYear:             "2024-02-21",
	}, nil)
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Tier == models.TierPremium &&
			sub.InvoiceLimit == models.TierLimits[models.TierPremium] &&
			sub.CurrentMonthCount == 0 &&
			sub.SubscriptionStartDate.Equal(now) &&
			sub.SubscriptionEndDate.Equal(now.AddDate(0, 0, models.PaidPeriodDays)) &&
			sub.MonthYear == "2024-03-01"
	})).Return(nil)

	svc := newTestService(repo, now)
	require.NoError(t, svc.Upgrade(context.Background(), "user-1", models.TierPremium))
	repo.AssertExpectations(t)
}

func TestUpgrade_AccumulatesCreditsWhileActive(t *testing.T) {
	now := date(2024, time.March, 10)
	anchor := date(2024, time.March, 1)
	end := date(2024, time.March, 31)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
		UserUID:               "user-1",
		Tier:                  models.TierPremium,
		InvoiceLimit:          200,
		CurrentMonthCount:     60,
		SubscriptionStartDate: anchor,
		SubscriptionEndDate:   &end,
		MonthYear:             "2024-03-01",
	}, nil)
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		// 200-60 неиспользованных + 200 нового тарифа, срок +30 дней от старого.
		return sub.InvoiceLimit == 340 &&
			sub.CurrentMonthCount == 0 &&
			sub.SubscriptionStartDate.Equal(anchor) &&
			sub.SubscriptionEndDate.Equal(end.AddDate(0, 0, models.PaidPeriodDays))
	})).Return(nil)

	svc := newTestService(repo, now)
	require.NoError(t, svc.Upgrade(context.Background(), "user-1", models.TierPremium))
	repo.AssertExpectations(t)
}

func TestDowngrade_KeepsUsageCounter(t *testing.T) {
	end := date(2024, time.April, 1)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
		UserUID:               "user-1",
		Tier:                  models.TierPremium,
		InvoiceLimit:          200,
		CurrentMonthCount:     150,
		SubscriptionStartDate: date(2024, time.March, 2),
		SubscriptionEndDate:   &end,
		MonthYear:             "2024-03-02",
	}, nil)
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Tier == models.TierFree &&
			sub.InvoiceLimit == models.FreeTierLimit &&
			sub.CurrentMonthCount == 150 &&
			sub.SubscriptionEndDate == nil
	})).Return(nil)

	svc := newTestService(repo, date(2024, time.March, 10))
	require.NoError(t, svc.Downgrade(context.Background(), "user-1"))
	repo.AssertExpectations(t)
}

func TestExtend(t *testing.T) {
	now := date(2024, time.March, 10)
	futureEnd := date(2024, time.March, 20)
	pastEnd := date(2024, time.February, 1)

	cases := []struct {
		name    string
		end     *time.Time
		days    int
		wantEnd time.Time
		wantErr error
	}{
		{name: "from future end", end: &futureEnd, days: 10, wantEnd: futureEnd.AddDate(0, 0, 10)},
		{name: "from now when expired", end: &pastEnd, days: 10, wantEnd: now.AddDate(0, 0, 10)},
		{name: "from now when never paid", end: nil, days: 7, wantEnd: now.AddDate(0, 0, 7)},
		{name: "zero days rejected", end: &futureEnd, days: 0, wantErr: ErrInvalidExtendDays},
		{name: "negative days rejected", end: &futureEnd, days: -5, wantErr: ErrInvalidExtendDays},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockRepo)
			if tc.wantErr == nil {
				repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
					UserUID:               "user-1",
					Tier:                  models.TierPremium,
					SubscriptionStartDate: date(2024, time.February, 10),
					SubscriptionEndDate:   tc.end,
					MonthYear:             "2024-03-10",
				}, nil)
				repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
					return sub.SubscriptionEndDate.Equal(tc.wantEnd)
				})).Return(nil)
			}

			svc := newTestService(repo, now)
			err := svc.Extend(context.Background(), "user-1", tc.days)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestGetSubscriptionStatus(t *testing.T) {
	anchor := date(2024, time.March, 5)
	end := date(2024, time.April, 4)
	repo := new(mockRepo)
	repo.On("GetSubscription", mock.Anything, "user-1").Return(&models.Subscription{
		UserUID:               "user-1",
		Tier:                  models.TierPremium,
		InvoiceLimit:          200,
		CurrentMonthCount:     42,
		SubscriptionStartDate: anchor,
		SubscriptionEndDate:   &end,
		MonthYear:             "2024-03-05",
	}, nil)

	svc := newTestService(repo, date(2024, time.March, 20))
	status, err := svc.GetSubscriptionStatus(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.TierPremium, status.Tier)
	assert.Equal(t, 200, status.InvoiceLimit)
	assert.Equal(t, 42, status.CurrentMonthCount)
	assert.Equal(t, date(2024, time.April, 5).Format("2006-01-02"), status.NextResetDate.Format("2006-01-02"))
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, status.ExpiresAt.Equal(end))
}
