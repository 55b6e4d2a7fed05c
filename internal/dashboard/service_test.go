package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/photogram/cache/ristretto"
	"github.com/anoixa/photogram/database/dbtest"
	"github.com/anoixa/photogram/database/models"
	dashboardRepo "github.com/anoixa/photogram/database/repo/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepository 记录真实仓库被调用的次数
type countingRepository struct {
	*dashboardRepo.Repository
	overviewCalls int
}

func (c *countingRepository) GetOverviewStats(ctx context.Context) (*dashboardRepo.OverviewStats, error) {
	c.overviewCalls++
	return c.Repository.GetOverviewStats(ctx)
}

func newService(t *testing.T) (*Service, *countingRepository) {
	t.Helper()
	provider := dbtest.NewProvider(t)
	db := provider.DB()

	alice := &models.User{FullName: "alice", Email: "alice@example.com", Password: "h", Role: models.RoleAdmin}
	bob := &models.User{FullName: "bob", Email: "bob@example.com", Password: "h", Role: models.RoleUser, IsBanned: true}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	cat := &models.Tag{Name: "cat"}
	cute := &models.Tag{Name: "cute"}
	first := &models.Picture{URL: "u1", PublicID: "p1", UserID: alice.ID, Tags: []*models.Tag{cat, cute}}
	second := &models.Picture{URL: "u2", PublicID: "p2", UserID: alice.ID, Tags: []*models.Tag{cat}}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)
	require.NoError(t, db.Create(&models.Comment{Text: "nice", UserID: bob.ID, PictureID: first.ID}).Error)

	repo := &countingRepository{Repository: dashboardRepo.NewRepository(provider)}
	cacheProvider, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheProvider.Close() })

	return NewService(repo, cacheProvider), repo
}

func TestService_GetStats(t *testing.T) {
	svc, _ := newService(t)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Overview.Pictures.Total)
	assert.Equal(t, int64(2), stats.Overview.Pictures.Today)
	assert.Equal(t, int64(2), stats.Overview.Pictures.ThisMonth)
	assert.Equal(t, int64(2), stats.Overview.Users.Total)
	assert.Equal(t, int64(1), stats.Overview.Users.Banned)
	assert.Equal(t, int64(1), stats.Overview.Comments.Total)
	assert.Equal(t, int64(2), stats.Overview.Tags.Total)

	require.Len(t, stats.TopTags, 2)
	assert.Equal(t, TagItem{Name: "cat", Count: 2}, stats.TopTags[0])
	assert.Equal(t, TagItem{Name: "cute", Count: 1}, stats.TopTags[1])

	require.Len(t, stats.Trend.Dates, trendDays)
	assert.Equal(t, time.Now().Format("2006-01-02"), stats.Trend.Dates[trendDays-1])
	assert.Equal(t, int64(2), stats.Trend.Data[trendDays-1])
}

func TestService_GetStatsIsCached(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	_, err := svc.GetStats(ctx)
	require.NoError(t, err)
	_, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.overviewCalls)

	require.NoError(t, svc.RefreshCache(ctx))
	_, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.overviewCalls)
}

func TestBuildTrendData(t *testing.T) {
	start := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	trend := buildTrendData([]dashboardRepo.DailyStat{
		{Date: "2024-01-31", Count: 3},
		{Date: "2024-02-02", Count: 1},
	}, start, 4)

	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, trend.Dates)
	assert.Equal(t, []int64{0, 3, 0, 1}, trend.Data)
}
