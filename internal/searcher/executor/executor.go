package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/resultset"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Order selects how ranked results are presented.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder maps "", "asc" and "desc" to an Order.
func ParseOrder(s string) (Order, bool) {
	switch s {
	case "", string(OrderAsc):
		return OrderAsc, true
	case string(OrderDesc):
		return OrderDesc, true
	}
	return "", false
}

type SearchResult struct {
	Query     string            `json:"query"`
	Plan      string            `json:"plan"`
	Order     Order             `json:"order"`
	TotalHits int               `json:"total_hits"`
	Results   []resultset.Entry `json:"results"`
	TermStats map[string]int    `json:"term_stats"`
}

type Executor struct {
	store          resultset.PostingStore
	combine        resultset.CombineFunc
	maxConcurrency int
	logger         *slog.Logger
}

// New builds an Executor that resolves terms against store with at most
// maxConcurrency lookups in flight (unbounded when <= 0).
func New(store resultset.PostingStore, maxConcurrency int) *Executor {
	return &Executor{
		store:          store,
		combine:        resultset.Sum,
		maxConcurrency: maxConcurrency,
		logger:         logger.WithComponent("query-executor"),
	}
}

// WithCombine swaps the relevance merge policy.
func (e *Executor) WithCombine(fn resultset.CombineFunc) *Executor {
	out := *e
	out.combine = fn
	return &out
}

// Evaluate resolves every term of plan and folds the steps left to right.
// Any lookup failure aborts evaluation.
func (e *Executor) Evaluate(ctx context.Context, plan *parser.QueryPlan) (*resultset.ResultSet, map[string]int, error) {
	if len(plan.Steps) == 0 {
		return resultset.Empty(), map[string]int{}, nil
	}
	sets, err := e.lookupAll(ctx, plan.Terms())
	if err != nil {
		return nil, nil, err
	}
	termStats := make(map[string]int, len(sets))
	for term, rs := range sets {
		termStats[term] = rs.Len()
	}
	first := plan.Steps[0]
	acc := sets[first.Term].WithCombine(e.combine)
	if first.Op == parser.OpMINUS {
		acc = resultset.Empty().WithCombine(e.combine)
	}
	for _, step := range plan.Steps[1:] {
		operand := sets[step.Term]
		switch step.Op {
		case parser.OpAND:
			acc = acc.And(operand)
		case parser.OpOR:
			acc = acc.Or(operand)
		case parser.OpMINUS:
			acc = acc.Minus(operand)
		}
	}
	return acc, termStats, nil
}

// Execute evaluates plan and ranks the matches. Results are ascending by
// score unless order is OrderDesc; limit > 0 truncates after ordering.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int, order Order) (*SearchResult, error) {
	if order == "" {
		order = OrderAsc
	}
	rs, termStats, err := e.Evaluate(ctx, plan)
	if err != nil {
		return nil, err
	}
	ranked := rs.Sort()
	if order == OrderDesc {
		ranked = resultset.Reverse(ranked)
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"plan", plan.String(),
		"matches", rs.Len(),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		Plan:      plan.String(),
		Order:     order,
		TotalHits: rs.Len(),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

func (e *Executor) lookupAll(ctx context.Context, terms []string) (map[string]*resultset.ResultSet, error) {
	g, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}
	var mu sync.Mutex
	sets := make(map[string]*resultset.ResultSet, len(terms))
	for _, term := range terms {
		g.Go(func() error {
			rs, err := resultset.Search(gctx, term, e.store)
			if err != nil {
				return err
			}
			mu.Lock()
			sets[term] = rs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolving query terms: %w", err)
	}
	return sets, nil
}
