package domain

import (
	"math"
	"time"
)

// DefaultHalfLifeDays 信号衰减常数（天）
// 取 e 折减常数：发布 30 天后权重约 1/e，60 天后约 1/e²
const DefaultHalfLifeDays = 30.0

// 置信度边界：事件本身即为证据，无关键词佐证也保留下限；上限恒低于 1，不声称完全确定
const (
	minConfidence = 0.30
	maxConfidence = 0.95
)

// Decay 计算发布时长对应的衰减系数，值域 (0, 1]
// 未来日期按当天处理
func Decay(daysOld, halfLife float64) float64 {
	if daysOld < 0 {
		daysOld = 0
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLifeDays
	}
	return math.Exp(-daysOld / halfLife)
}

// Confidence 计算信号置信度，随佐证关键词数上升且边际递减
// confidence(0)=0.30，confidence(1)≈0.65，confidence(2)≈0.80
func Confidence(keywordCount int, sourceReliability float64) float64 {
	if keywordCount < 0 {
		keywordCount = 0
	}
	if sourceReliability <= 0 {
		sourceReliability = 1.0
	}
	base := maxConfidence - 0.65*math.Exp(-0.75*float64(keywordCount))
	conf := base * sourceReliability
	if conf < minConfidence {
		return minConfidence
	}
	if conf > maxConfidence {
		return maxConfidence
	}
	return conf
}

// ScoreResult 单信号评分结果，每次评估临时产出，不落库
type ScoreResult struct {
	RawScore          int              `json:"raw_score"`
	DecayedScore      float64          `json:"decayed_score"`
	Confidence        float64          `json:"confidence"`
	FinalScore        int              `json:"final_score"`
	Status            Status           `json:"status"`
	Sentiment         Sentiment        `json:"sentiment"`
	CategoryBreakdown map[Category]int `json:"category_breakdown"`
}

// SignalScorer 信号评分器，将匹配结果与发布时长折算为最终分
type SignalScorer struct {
	matcher  *KeywordMatcher
	halfLife float64
	now      func() time.Time
}

// NewSignalScorer 创建信号评分器
func NewSignalScorer(matcher *KeywordMatcher, halfLifeDays float64) *SignalScorer {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	return &SignalScorer{
		matcher:  matcher,
		halfLife: halfLifeDays,
		now:      time.Now,
	}
}

// Score 对匹配结果评分
// 评分永不失败：零值发布时间按当天处理（上游应记录数据质量告警）
func (s *SignalScorer) Score(result MatchResult, publishedAt time.Time, source Source) ScoreResult {
	now := s.now()

	var daysOld float64
	if !publishedAt.IsZero() && publishedAt.Before(now) {
		daysOld = now.Sub(publishedAt).Hours() / 24
	}

	decayed := float64(result.RawScore) * Decay(daysOld, s.halfLife)
	conf := Confidence(result.KeywordCount, ReliabilityOf(source))
	final := ClampScore(int(math.Round(decayed*conf)), 100)

	return ScoreResult{
		RawScore:          result.RawScore,
		DecayedScore:      decayed,
		Confidence:        conf,
		FinalScore:        final,
		Status:            StatusFromScore(final),
		Sentiment:         SentimentFromScore(final),
		CategoryBreakdown: AggregateByCategory(result.Matched),
	}
}

// ScoreText 对原始文本匹配并评分，scoreEvent 操作的领域入口
func (s *SignalScorer) ScoreText(text string, source Source, publishedAt time.Time) ScoreResult {
	return s.Score(s.matcher.Match(text, source), publishedAt, source)
}
