package metrics

// BookCost returns the total cost for a book.
func (q *Query) BookCost(bookID string) float64 {
	return q.TotalCost(Filter{BookID: bookID})
}

// StageCost returns the total cost for a stage (across all books).
func (q *Query) StageCost(stage string) float64 {
	return q.TotalCost(Filter{Stage: stage})
}

// BookStageCost returns the total cost for a specific book and stage.
func (q *Query) BookStageCost(bookID, stage string) float64 {
	return q.TotalCost(Filter{BookID: bookID, Stage: stage})
}

// BookStageBreakdown returns cost broken down by stage for a book.
func (q *Query) BookStageBreakdown(bookID string) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range q.List(Filter{BookID: bookID}, 0) {
		breakdown[m.Stage] += m.CostUSD
	}
	return breakdown
}

// CostByModel returns cost broken down by model.
func (q *Query) CostByModel(f Filter) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range q.List(f, 0) {
		breakdown[m.Model] += m.CostUSD
	}
	return breakdown
}

// CostByProvider returns cost broken down by provider.
func (q *Query) CostByProvider(f Filter) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, m := range q.List(f, 0) {
		breakdown[m.Provider] += m.CostUSD
	}
	return breakdown
}
