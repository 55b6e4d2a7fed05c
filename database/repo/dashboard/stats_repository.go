package dashboard

import (
	"context"
	"time"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
)

// Repository 管理后台统计仓库
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的统计仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// OverviewStats 概览统计
type OverviewStats struct {
	Users       int64
	BannedUsers int64
	Pictures    int64
	Comments    int64
	Transformed int64
	Tags        int64
}

// GetOverviewStats 获取各表的总量
func (r *Repository) GetOverviewStats(ctx context.Context) (*OverviewStats, error) {
	var result OverviewStats
	db := r.db.WithContext(ctx)

	counts := []struct {
		model interface{}
		where string
		dest  *int64
	}{
		{&models.User{}, "", &result.Users},
		{&models.User{}, "is_banned = ?", &result.BannedUsers},
		{&models.Picture{}, "", &result.Pictures},
		{&models.Comment{}, "", &result.Comments},
		{&models.TransformedPicture{}, "", &result.Transformed},
		{&models.Tag{}, "", &result.Tags},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, true)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// CountPicturesSince 统计 since 之后上传的图片数
func (r *Repository) CountPicturesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Picture{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// DailyStat 每日统计
type DailyStat struct {
	Date  string
	Count int64
}

// GetDailyStats 获取 since 之后每天的上传数
// 按 since 所在时区分组，在内存中完成，SQLite 和 PostgreSQL 的日期函数不通用
func (r *Repository) GetDailyStats(ctx context.Context, since time.Time) ([]DailyStat, error) {
	var createdAt []time.Time
	err := r.db.WithContext(ctx).Model(&models.Picture{}).
		Where("created_at >= ?", since).
		Order("created_at").
		Pluck("created_at", &createdAt).Error
	if err != nil {
		return nil, err
	}

	var stats []DailyStat
	for _, t := range createdAt {
		date := t.In(since.Location()).Format("2006-01-02")
		if n := len(stats); n > 0 && stats[n-1].Date == date {
			stats[n-1].Count++
			continue
		}
		stats = append(stats, DailyStat{Date: date, Count: 1})
	}
	return stats, nil
}

// TagStat 标签使用次数
type TagStat struct {
	Name  string
	Count int64
}

// GetTopTags 获取使用最多的标签
func (r *Repository) GetTopTags(ctx context.Context, limit int) ([]TagStat, error) {
	var stats []TagStat
	err := r.db.WithContext(ctx).Table("tags").
		Select("tags.name as name, COUNT(pta.picture_id) as count").
		Joins("JOIN picture_tag_association pta ON pta.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("count DESC, tags.name").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}
