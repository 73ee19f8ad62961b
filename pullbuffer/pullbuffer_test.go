package pullbuffer

import (
	"errors"
	"testing"
)

type mockUpstream struct {
	calls []struct {
		n   int
		ref any
	}
}

func (m *mockUpstream) SendDemand(n int, ref any) error {
	m.calls = append(m.calls, struct {
		n   int
		ref any
	}{n, ref})
	return nil
}

func (m *mockUpstream) last() (int, bool) {
	if len(m.calls) == 0 {
		return 0, false
	}
	return m.calls[len(m.calls)-1].n, true
}

func bufOfLen(n int) Buffer {
	return Buffer{Payload: NewPayload(make([]byte, n))}
}

func batchOf(counts ...int) []Buffer {
	out := make([]Buffer, len(counts))
	for i, c := range counts {
		out[i] = bufOfLen(c)
	}
	return out
}

// TestDemandCoalescing is the literal scenario 1 from spec.md §8.
func TestDemandCoalescing(t *testing.T) {
	up := &mockUpstream{}
	pb := New("sink:in", up, "sink:in", BufferMetric{}, Options{PreferredSize: 100, MinDemand: 25})

	if n, ok := up.last(); !ok || n != 100 {
		t.Fatalf("initial demand = %v (ok=%v), want 100", n, ok)
	}
	if got := pb.Demand(); got != 0 {
		t.Fatalf("demand after construction = %d, want 0", got)
	}

	batch := make([]Buffer, 100)
	for i := range batch {
		batch[i] = bufOfLen(1)
	}
	if err := pb.StoreBuffers(batch); err != nil {
		t.Fatalf("StoreBuffers: %v", err)
	}
	if got := pb.CurrentSize(); got != 100 {
		t.Fatalf("current_size after store = %d, want 100", got)
	}

	res, err := pb.Take(30)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !res.HasBuffers || len(res.Items) != 30 {
		t.Fatalf("Take(30) returned %d items, HasBuffers=%v", len(res.Items), res.HasBuffers)
	}
	if got := pb.CurrentSize(); got != 70 {
		t.Fatalf("current_size after take = %d, want 70", got)
	}
	if got := pb.Demand(); got != 0 {
		t.Fatalf("demand after take = %d, want 0", got)
	}
	if n, ok := up.last(); !ok || n != 30 {
		t.Fatalf("last demand sent = %v, want 30", n)
	}
}

// TestToiletOverflow is the literal scenario 2 from spec.md §8.
func TestToiletOverflow(t *testing.T) {
	up := &mockUpstream{}
	pb := New("sink:in", up, "sink:in", ByteMetric{}, Options{
		Toilet: &Toilet{WarnLevel: 200, FailLevel: 400},
	})
	if len(up.calls) != 0 {
		t.Fatal("toilet-mode construction must not issue demand")
	}

	if err := pb.StoreBuffers(batchOfSize(150)); err != nil {
		t.Fatalf("store 150: %v", err)
	}
	if err := pb.StoreBuffers(batchOfSize(100)); err != nil {
		t.Fatalf("store 100 more: %v", err)
	}
	if got := pb.CurrentSize(); got != 250 {
		t.Fatalf("current_size = %d, want 250", got)
	}

	err := pb.StoreBuffers(batchOfSize(200))
	if err == nil {
		t.Fatal("expected ToiletOverflow at size 450")
	}
	var overflow *ErrToiletOverflow
	if !errors.As(err, &overflow) {
		t.Fatalf("error = %v, want *ErrToiletOverflow", err)
	}
	if overflow.Size != 450 {
		t.Fatalf("overflow size = %d, want 450", overflow.Size)
	}
}

func batchOfSize(n int) []Buffer {
	return []Buffer{bufOfLen(n)}
}

func TestTakeZeroReturnsOnlyMarkers(t *testing.T) {
	up := &mockUpstream{}
	pb := New("f:in", up, "f:in", BufferMetric{}, Options{PreferredSize: 10, MinDemand: 2})
	pb.StoreNonBuffer("event", "start-of-stream")
	if err := pb.StoreBuffers(batchOf(1, 1)); err != nil {
		t.Fatalf("StoreBuffers: %v", err)
	}

	res, err := pb.Take(0)
	if err != nil {
		t.Fatalf("Take(0): %v", err)
	}
	if res.HasBuffers {
		t.Fatal("Take(0) must not consume buffer records")
	}
	if len(res.Items) != 1 || res.Items[0].Kind != ItemNonBuffer {
		t.Fatalf("Take(0) items = %+v, want one non-buffer marker", res.Items)
	}
	if got := pb.CurrentSize(); got != 2 {
		t.Fatalf("current_size after Take(0) = %d, want 2 (untouched)", got)
	}
}

func TestStoreIntoFullBufferDoesNotDropData(t *testing.T) {
	up := &mockUpstream{}
	pb := New("f:in", up, "f:in", BufferMetric{}, Options{PreferredSize: 5, MinDemand: 1})
	if err := pb.StoreBuffers(batchOf(1, 1, 1, 1, 1)); err != nil {
		t.Fatalf("store: %v", err)
	}
	// Buffer is now at preferred_size; another store should still succeed
	// (spec.md §4.3: "storing when current_size >= preferred_size... still
	// accepts the data").
	if err := pb.StoreBuffers(batchOf(1)); err != nil {
		t.Fatalf("overdelivery store: %v", err)
	}
	if got := pb.CurrentSize(); got != 6 {
		t.Fatalf("current_size = %d, want 6 (nothing dropped)", got)
	}
}

func TestSplitReproducesOriginalBatch(t *testing.T) {
	up := &mockUpstream{}
	pb := New("f:in", up, "f:in", BufferMetric{}, Options{PreferredSize: 100, MinDemand: 10})
	original := batchOf(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	if err := pb.StoreBuffers(original); err != nil {
		t.Fatalf("store: %v", err)
	}

	first, err := pb.Take(4)
	if err != nil {
		t.Fatalf("Take(4): %v", err)
	}
	second, err := pb.Take(6)
	if err != nil {
		t.Fatalf("Take(6): %v", err)
	}

	total := len(first.Items) + len(second.Items)
	if total != len(original) {
		t.Fatalf("reassembled %d buffers, want %d", total, len(original))
	}
	var got []Buffer
	for _, it := range append(first.Items, second.Items...) {
		got = append(got, it.Buffer)
	}
	for i := range original {
		if got[i].Payload != original[i].Payload {
			t.Fatalf("buffer %d out of order after split and reassembly", i)
		}
	}
}

func TestEmptySplitAvoided(t *testing.T) {
	up := &mockUpstream{}
	pb := New("f:in", up, "f:in", ByteMetric{}, Options{PreferredSize: 1000, MinDemand: 1})
	// A single buffer larger than the requested count must not be split
	// into an empty head; Take should decline rather than return a
	// zero-length first half.
	if err := pb.StoreBuffers([]Buffer{bufOfLen(10)}); err != nil {
		t.Fatalf("store: %v", err)
	}
	res, err := pb.Take(0)
	if err != nil {
		t.Fatalf("Take(0): %v", err)
	}
	if res.HasBuffers {
		t.Fatal("Take(0) should not produce buffers")
	}
}
