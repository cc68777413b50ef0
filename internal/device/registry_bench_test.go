package device

import (
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry pre-populated with n devices.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	reg := NewRegistry()
	for i := 0; i < n; i++ {
		reg.Upsert(testReport(fmt.Sprintf("dev-%04d", i), float64(i%90), float64(i%180)))
	}
	return reg
}

func BenchmarkRegistryUpsert(b *testing.B) {
	reg := setupBenchRegistry(b, 100)
	report := testReport("dev-0050", 35.38, -1.09)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Upsert(report)
	}
}

func BenchmarkRegistryUpsert_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			reg.Upsert(testReport(fmt.Sprintf("dev-%04d", i%100), 35.38, -1.09))
			i++
		}
	})
}

func BenchmarkRegistrySnapshot(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		reg := setupBenchRegistry(b, n)
		b.Run(fmt.Sprintf("devices=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = reg.Snapshot()
			}
		})
	}
}

func BenchmarkRegistrySnapshot_WithWriters(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%4 == 0 {
				reg.Upsert(testReport("dev-0001", 1, 1))
			} else {
				_ = reg.Snapshot()
			}
			i++
		}
	})
}
