package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	SkillCategoriesKey  = "skills:categories"
	PopularSkillsPrefix = "skills:popular:%d"
	FeedbackStatsPrefix = "feedback:stats:%d"
)

const (
	SkillCategoriesTTL = 10 * time.Minute
	PopularSkillsTTL   = 2 * time.Minute
	FeedbackStatsTTL   = 5 * time.Minute
)

// PopularSkillsKey is keyed by limit since callers may ask for different page sizes.
func PopularSkillsKey(limit int) string {
	return fmt.Sprintf(PopularSkillsPrefix, limit)
}

func FeedbackStatsKey(userID uint) string {
	return fmt.Sprintf(FeedbackStatsPrefix, userID)
}

// Invalidate deletes key; a missing client is a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidatePattern deletes every key matching pattern using SCAN.
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateSkillCategories(ctx context.Context) {
	Invalidate(ctx, SkillCategoriesKey)
}

func InvalidatePopularSkills(ctx context.Context) {
	InvalidatePattern(ctx, "skills:popular:*")
}

func InvalidateFeedbackStats(ctx context.Context, userID uint) {
	Invalidate(ctx, FeedbackStatsKey(userID))
}
