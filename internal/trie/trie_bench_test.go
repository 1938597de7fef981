package trie

import (
	"math/rand"
	"strings"
	"testing"
)

func generateRandomPaths(count, maxLength int) []string {
	paths := make([]string, count)
	for i := range count {
		length := rand.Intn(maxLength) + 1
		segments := make([]string, length)
		for j := range length {
			segments[j] = string(rune('a' + rand.Intn(26)))
		}
		paths[i] = strings.Join(segments, "/")
	}
	return paths
}

var sizes = []struct {
	name      string
	count     int
	maxLength int
}{
	{"Small", 100, 5},
	{"Medium", 1000, 10},
	{"Large", 10000, 20},
}

func BenchmarkInsert(b *testing.B) {
	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			paths := generateRandomPaths(size.count, size.maxLength)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				tr := New()
				for j, path := range paths {
					tr.Insert(path, j)
				}
			}
		})
	}
}

func BenchmarkUnder(b *testing.B) {
	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			paths := generateRandomPaths(size.count, size.maxLength)
			tr := New()
			for j, path := range paths {
				tr.Insert(path, j)
			}
			prefix := Split(paths[0])[:1]

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				tr.Under(prefix)
			}
		})
	}
}
