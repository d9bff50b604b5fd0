package resultset

import (
	"fmt"
	"testing"
)

func postings(n, offset int) *ResultSet {
	m := make(map[string]int, n)
	for i := 0; i < n; i++ {
		m[fmt.Sprintf("doc-%d", i+offset)] = (i % 10) + 1
	}
	return New(m)
}

// BenchmarkCombinators measures AND/OR/MINUS on half-overlapping posting
// lists of increasing size.
func BenchmarkCombinators(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		left, right := postings(n, 0), postings(n, n/2)
		b.Run(fmt.Sprintf("and_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = left.And(right)
			}
		})
		b.Run(fmt.Sprintf("or_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = left.Or(right)
			}
		})
		b.Run(fmt.Sprintf("minus_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = left.Minus(right)
			}
		})
	}
}

// BenchmarkAndSkewed checks that AND cost follows the smaller operand.
func BenchmarkAndSkewed(b *testing.B) {
	small, large := postings(10, 0), postings(100000, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = large.And(small)
	}
}

func BenchmarkSort(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		rs := postings(n, 0)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = rs.Sort()
			}
		})
	}
}
