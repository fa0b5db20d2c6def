package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-api/internal/models"
)

// ExtractiveSummarizer builds insights from the learnings themselves
// without a language model: the dominant sector, the dominant PER component
// and the most recent lessons.
type ExtractiveSummarizer struct {
	// PerInsight caps the learnings quoted in one insight.
	PerInsight int
}

func NewExtractiveSummarizer() *ExtractiveSummarizer {
	return &ExtractiveSummarizer{PerInsight: 3}
}

type bucket struct {
	key   string
	items []models.OpsLearning
}

func (e *ExtractiveSummarizer) Summarize(ctx context.Context, learnings []models.OpsLearning) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	per := e.PerInsight
	if per <= 0 {
		per = 3
	}

	summary := &Summary{}
	if len(learnings) == 0 {
		return summary, nil
	}

	sectors := rank(learnings, func(l models.OpsLearning) string {
		return strings.TrimSpace(l.Sector)
	})
	components := rank(learnings, func(l models.OpsLearning) string {
		if l.PerComponent == nil {
			return ""
		}
		return strings.TrimSpace(l.PerComponent.Title)
	})

	if len(sectors) > 0 {
		top := sectors[0]
		summary.Insights = append(summary.Insights, Insight{
			Title:   fmt.Sprintf("Most reported sector: %s (%d learnings)", top.key, len(top.items)),
			Content: quote(top.items, per),
		})
	}
	if len(components) > 0 {
		top := components[0]
		summary.Insights = append(summary.Insights, Insight{
			Title:   fmt.Sprintf("Most cited PER component: %s (%d learnings)", top.key, len(top.items)),
			Content: quote(top.items, per),
		})
	}
	// Learnings arrive newest first.
	summary.Insights = append(summary.Insights, Insight{
		Title:   "Most recent learnings",
		Content: quote(learnings, per),
	})

	for _, b := range sectors {
		summary.SectorSummaries = append(summary.SectorSummaries, models.SectorSummary{
			Sector:  b.key,
			Count:   len(b.items),
			Summary: quote(b.items, per),
		})
	}

	challenges, lessons := 0, 0
	for _, l := range learnings {
		switch l.Type {
		case models.OpsLearningChallenge:
			challenges++
		case models.OpsLearningLesson:
			lessons++
		}
	}
	if challenges > 0 && lessons > 0 {
		summary.ContradictoryReports = fmt.Sprintf("%d lessons and %d challenges were reported for the same filters.", lessons, challenges)
	}
	return summary, nil
}

// rank groups learnings by key, skipping empty keys, largest group first.
func rank(learnings []models.OpsLearning, key func(models.OpsLearning) string) []bucket {
	byKey := map[string]*bucket{}
	var order []*bucket
	for _, l := range learnings {
		k := key(l)
		if k == "" {
			continue
		}
		b, ok := byKey[k]
		if !ok {
			b = &bucket{key: k}
			byKey[k] = b
			order = append(order, b)
		}
		b.items = append(b.items, l)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if len(order[i].items) != len(order[j].items) {
			return len(order[i].items) > len(order[j].items)
		}
		return order[i].key < order[j].key
	})

	out := make([]bucket, len(order))
	for i, b := range order {
		out[i] = *b
	}
	return out
}

func quote(learnings []models.OpsLearning, n int) string {
	lines := make([]string, 0, n)
	for _, l := range learnings {
		if len(lines) == n {
			break
		}
		text := strings.TrimSpace(l.LearningValidated)
		if text == "" {
			text = strings.TrimSpace(l.Learning)
		}
		if text == "" {
			continue
		}
		lines = append(lines, "- "+text)
	}
	return strings.Join(lines, "\n")
}
