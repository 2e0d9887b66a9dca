package feature

import "github.com/rushteam/ratingkit/core"

// DefaultMeanRating 冷启动（无历史评分）时的均值，取评分区间中点。
// 会把冷启动商品/用户的预测拉向中性评分，数值不可随意修改。
const DefaultMeanRating = 3.0

// RatingStats 历史评分统计
type RatingStats struct {
	Mean  float64
	Count int
}

// Aggregate 计算历史评分的算术平均值与条数。
// 空列表返回 {3.0, 0}。
func Aggregate(records []core.RatingRecord) RatingStats {
	if len(records) == 0 {
		return RatingStats{Mean: DefaultMeanRating, Count: 0}
	}
	sum := 0
	for _, r := range records {
		sum += r.Rating
	}
	return RatingStats{
		Mean:  float64(sum) / float64(len(records)),
		Count: len(records),
	}
}
