package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// BenchmarkAppend reports tail latency of a synced verdict append.
func BenchmarkAppend(b *testing.B) {
	b.ReportAllocs()
	s := New(filepath.Join(b.TempDir(), "verdicts.jsonl"))
	rec := Record{
		Statement:   "dlog",
		Accepted:    true,
		Fingerprint: "0123456789abcdef01234567",
		Transcript:  make([]byte, 96),
		DecidedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	lat := make([]int64, 0, b.N)
	b.SetBytes(int64(len(rec.Transcript)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec.SessionID = fmt.Sprintf("s-%d", i)
		start := time.Now()
		if err := s.Append(rec); err != nil {
			b.Fatalf("append: %v", err)
		}
		lat = append(lat, time.Since(start).Nanoseconds())
	}
	b.StopTimer()

	if len(lat) == 0 {
		return
	}
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	b.ReportMetric(float64(lat[(len(lat)*99)/100]), "p99-ns/op")
	b.ReportMetric(float64(lat[len(lat)-1]), "max-ns/op")
}

// BenchmarkFind looks up the last session of a populated archive, which
// scans every line.
func BenchmarkFind(b *testing.B) {
	s := New(filepath.Join(b.TempDir(), "verdicts.jsonl"))
	const n = 256
	for i := 0; i < n; i++ {
		if err := s.Append(Record{SessionID: fmt.Sprintf("s-%d", i), Statement: "or", Transcript: []byte{byte(i)}}); err != nil {
			b.Fatalf("append: %v", err)
		}
	}
	last := fmt.Sprintf("s-%d", n-1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := s.Find(last)
		if err != nil || r == nil {
			b.Fatalf("find %s: %v %v", last, r, err)
		}
	}
}
