package parser

import (
	"strings"
)

type Operator int

const (
	OpAND Operator = iota
	OpOR
	OpMINUS
)

func (o Operator) String() string {
	switch o {
	case OpOR:
		return "OR"
	case OpMINUS:
		return "MINUS"
	default:
		return "AND"
	}
}

// Step applies Op with the posting list of Term to the running result.
type Step struct {
	Op   Operator
	Term string
}

// QueryPlan is evaluated left to right. The first term seeds the result
// unless its operator is MINUS, in which case there is nothing to subtract
// from and the result starts empty.
type QueryPlan struct {
	Steps    []Step
	RawQuery string
}

// Terms returns the distinct terms of the plan in first-seen order.
func (p *QueryPlan) Terms() []string {
	seen := make(map[string]struct{}, len(p.Steps))
	terms := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		if _, ok := seen[step.Term]; ok {
			continue
		}
		seen[step.Term] = struct{}{}
		terms = append(terms, step.Term)
	}
	return terms
}

// String renders the plan in canonical form, e.g. "java AND coffee MINUS island".
func (p *QueryPlan) String() string {
	var b strings.Builder
	for i, step := range p.Steps {
		switch {
		case i > 0:
			b.WriteByte(' ')
			b.WriteString(step.Op.String())
			b.WriteByte(' ')
		case step.Op == OpMINUS:
			b.WriteString("MINUS ")
		}
		b.WriteString(step.Term)
	}
	return b.String()
}

// Parse splits query on whitespace. AND, OR, MINUS and NOT (an alias for
// MINUS) are operators in any case; adjacent terms are joined with AND.
// Terms are lower-cased. An operator with no term after it is dropped, and
// of consecutive operators the last one wins.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Steps:    make([]Step, 0),
		RawQuery: query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	words := strings.Fields(query)
	next := OpAND
	for i := 0; i < len(words); i++ {
		switch strings.ToUpper(words[i]) {
		case "AND":
			next = OpAND
			continue
		case "OR":
			next = OpOR
			continue
		case "MINUS", "NOT":
			next = OpMINUS
			continue
		}
		plan.Steps = append(plan.Steps, Step{
			Op:   next,
			Term: strings.ToLower(words[i]),
		})
		next = OpAND
	}
	return plan
}
