package dashboard

import (
	"context"
	"time"

	"github.com/anoixa/photogram/cache"
	"github.com/anoixa/photogram/database/repo/dashboard"
	"github.com/anoixa/photogram/utils/logger"
	"go.uber.org/zap"
)

const (
	trendDays    = 30
	topTagsLimit = 10
)

// StatsRepository 统计仓库接口
type StatsRepository interface {
	GetOverviewStats(ctx context.Context) (*dashboard.OverviewStats, error)
	CountPicturesSince(ctx context.Context, since time.Time) (int64, error)
	GetDailyStats(ctx context.Context, since time.Time) ([]dashboard.DailyStat, error)
	GetTopTags(ctx context.Context, limit int) ([]dashboard.TagStat, error)
}

// Service 管理后台统计服务
type Service struct {
	repo     StatsRepository
	cache    cache.Provider
	cacheTTL time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewService 创建新的统计服务
func NewService(repo StatsRepository, cacheProvider cache.Provider) *Service {
	return &Service{
		repo:     repo,
		cache:    cacheProvider,
		cacheTTL: 5 * time.Minute,
		now:      time.Now,
		log:      logger.Named("dashboard"),
	}
}

// StatsResponse 统计响应
type StatsResponse struct {
	Overview OverviewStats `json:"overview"`
	TopTags  []TagItem     `json:"top_tags"`
	Trend    TrendStats    `json:"trend"`
}

// OverviewStats 概览统计
type OverviewStats struct {
	Pictures    PictureStats `json:"pictures"`
	Users       UserStats    `json:"users"`
	Comments    CountStats   `json:"comments"`
	Transformed CountStats   `json:"transformed"`
	Tags        CountStats   `json:"tags"`
}

// PictureStats 图片统计
type PictureStats struct {
	Total     int64 `json:"total"`
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
}

// UserStats 用户统计
type UserStats struct {
	Total  int64 `json:"total"`
	Banned int64 `json:"banned"`
}

// CountStats 数量统计
type CountStats struct {
	Total int64 `json:"total"`
}

// TagItem 标签使用次数
type TagItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// TrendStats 趋势统计
type TrendStats struct {
	Period string   `json:"period"`
	Dates  []string `json:"dates"`
	Data   []int64  `json:"data"`
}

func statsCacheKey() string {
	return cache.Dashboard.Build("stats")
}

// GetStats 获取统计数据，结果缓存 cacheTTL
func (s *Service) GetStats(ctx context.Context) (*StatsResponse, error) {
	var cached StatsResponse
	if err := s.cache.Get(ctx, statsCacheKey(), &cached); err == nil {
		return &cached, nil
	}

	overview, err := s.repo.GetOverviewStats(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekday := (int(today.Weekday()) + 6) % 7
	periods := []struct {
		since time.Time
		dest  *int64
	}{
		{today, new(int64)},
		{today.AddDate(0, 0, -weekday), new(int64)},
		{time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), new(int64)},
	}
	for _, p := range periods {
		if *p.dest, err = s.repo.CountPicturesSince(ctx, p.since); err != nil {
			return nil, err
		}
	}

	trendStart := today.AddDate(0, 0, -(trendDays - 1))
	dailyStats, err := s.repo.GetDailyStats(ctx, trendStart)
	if err != nil {
		return nil, err
	}

	topTags, err := s.repo.GetTopTags(ctx, topTagsLimit)
	if err != nil {
		return nil, err
	}

	tags := make([]TagItem, len(topTags))
	for i, t := range topTags {
		tags[i] = TagItem{Name: t.Name, Count: t.Count}
	}

	response := &StatsResponse{
		Overview: OverviewStats{
			Pictures: PictureStats{
				Total:     overview.Pictures,
				Today:     *periods[0].dest,
				ThisWeek:  *periods[1].dest,
				ThisMonth: *periods[2].dest,
			},
			Users: UserStats{
				Total:  overview.Users,
				Banned: overview.BannedUsers,
			},
			Comments:    CountStats{Total: overview.Comments},
			Transformed: CountStats{Total: overview.Transformed},
			Tags:        CountStats{Total: overview.Tags},
		},
		TopTags: tags,
		Trend:   buildTrendData(dailyStats, trendStart, trendDays),
	}

	if err := s.cache.Set(ctx, statsCacheKey(), response, s.cacheTTL); err != nil {
		s.log.Warn("Failed to cache dashboard stats", zap.Error(err))
	}
	return response, nil
}

// RefreshCache 丢弃缓存的统计数据
func (s *Service) RefreshCache(ctx context.Context) error {
	return s.cache.Delete(ctx, statsCacheKey())
}

// buildTrendData 从 start 开始连续 days 天，没有数据的天数补0
func buildTrendData(stats []dashboard.DailyStat, start time.Time, days int) TrendStats {
	dates := make([]string, days)
	data := make([]int64, days)

	statMap := make(map[string]int64, len(stats))
	for _, stat := range stats {
		statMap[stat.Date] = stat.Count
	}

	for i := 0; i < days; i++ {
		dates[i] = start.AddDate(0, 0, i).Format("2006-01-02")
		data[i] = statMap[dates[i]]
	}

	return TrendStats{
		Period: "30d",
		Dates:  dates,
		Data:   data,
	}
}
