package parser

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Step
	}{
		{"empty", "   ", []Step{}},
		{"single", "Java", []Step{{OpAND, "java"}}},
		{"implicit and", "java programming", []Step{{OpAND, "java"}, {OpAND, "programming"}}},
		{"or", "java or coffee", []Step{{OpAND, "java"}, {OpOR, "coffee"}}},
		{"minus", "java MINUS island", []Step{{OpAND, "java"}, {OpMINUS, "island"}}},
		{"not alias", "java NOT island", []Step{{OpAND, "java"}, {OpMINUS, "island"}}},
		{
			"chain",
			"java OR coffee AND brew minus tea",
			[]Step{{OpAND, "java"}, {OpOR, "coffee"}, {OpAND, "brew"}, {OpMINUS, "tea"}},
		},
		{"trailing operator", "java OR", []Step{{OpAND, "java"}}},
		{"doubled operator", "java OR MINUS tea", []Step{{OpAND, "java"}, {OpMINUS, "tea"}}},
		{"operator only", "AND", []Step{}},
		{"leading not", "NOT java", []Step{{OpMINUS, "java"}}},
		{"leading not then term", "not java coffee", []Step{{OpMINUS, "java"}, {OpAND, "coffee"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			if !reflect.DeepEqual(plan.Steps, tt.want) {
				t.Errorf("got %v, want %v", plan.Steps, tt.want)
			}
			if plan.RawQuery != tt.query {
				t.Errorf("raw query not preserved: %q", plan.RawQuery)
			}
		})
	}
}

func TestQueryPlanTerms(t *testing.T) {
	plan := Parse("java OR coffee MINUS java tea")
	want := []string{"java", "coffee", "tea"}
	if got := plan.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestQueryPlanString(t *testing.T) {
	plan := Parse("Java coffee or TEA not island")
	want := "java AND coffee OR tea MINUS island"
	if got := plan.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLeadingMinusKeepsItsOwnCanonicalForm(t *testing.T) {
	negated, plain := Parse("NOT java"), Parse("java")
	if negated.String() != "MINUS java" {
		t.Errorf("got %q, want %q", negated.String(), "MINUS java")
	}
	if negated.String() == plain.String() {
		t.Error("negated and plain queries share a canonical form")
	}
}

func BenchmarkParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"single", "java"},
		{"and", "java AND coffee AND island"},
		{"mixed", "java OR coffee MINUS island NOT programming"},
		{"implicit", "java coffee island programming language"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Parse(q.query)
			}
		})
	}
}
