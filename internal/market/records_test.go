package market

import "testing"

func TestSortRestoresAscendingOrder(t *testing.T) {
	m := NewRecords([]MarketValueRecord{
		{Timestamp: 300, MarketValue: u64(3)},
		{Timestamp: 100, MarketValue: u64(1)},
		{Timestamp: 200, MarketValue: u64(2)},
	})
	m.Sort()
	recs := m.Records()
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Timestamp > recs[i].Timestamp {
			t.Fatalf("not sorted: %+v", recs)
		}
	}
}

func TestAddReturnsOne(t *testing.T) {
	m := NewRecords(nil)
	if n := m.Add(MarketValueRecord{Timestamp: 1}, true); n != 1 {
		t.Fatalf("Add returned %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestRemoveExpiredIsIdempotent(t *testing.T) {
	m := NewRecords([]MarketValueRecord{
		{Timestamp: 100},
		{Timestamp: 200},
		{Timestamp: 300},
	})
	first := m.RemoveExpired(200)
	if first != 2 {
		t.Fatalf("first RemoveExpired removed %d, want 2", first)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	second := m.RemoveExpired(200)
	if second != 0 {
		t.Fatalf("second RemoveExpired removed %d, want 0 (idempotent)", second)
	}
}

func TestGetRecentMarketValueRequiresFreshAndNonzero(t *testing.T) {
	m := NewRecords([]MarketValueRecord{
		{Timestamp: 100, MarketValue: u64(50)},
	})
	if got := m.GetRecentMarketValue(50); got != 50 {
		t.Fatalf("got %d, want 50 for a recent record", got)
	}
	if got := m.GetRecentMarketValue(150); got != 0 {
		t.Fatalf("got %d, want 0 for a stale record", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewRecords([]MarketValueRecord{{Timestamp: 1, MarketValue: u64(1)}})
	c := m.Clone()
	c.Add(MarketValueRecord{Timestamp: 2}, false)
	if m.Len() != 1 {
		t.Fatalf("original mutated via clone: Len() = %d", m.Len())
	}
	if c.Len() != 2 {
		t.Fatalf("clone did not grow: Len() = %d", c.Len())
	}
}

func TestGetHistoricalMarketValueEmptySeriesIsZero(t *testing.T) {
	m := NewRecords(nil)
	if got := m.GetHistoricalMarketValue(1000); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestGetWeightedMarketValueEmptySeriesIsZero(t *testing.T) {
	m := NewRecords(nil)
	if got := m.GetWeightedMarketValue(1000); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestGetHistoricalMarketValueAveragesDayBuckets(t *testing.T) {
	now := int64(10 * SecondsPerDay)
	m := NewRecords([]MarketValueRecord{
		{Timestamp: now - 1*SecondsPerDay, MarketValue: u64(100)},
		{Timestamp: now - 2*SecondsPerDay, MarketValue: u64(200)},
	})
	got := m.GetHistoricalMarketValue(now)
	if got != 150 {
		t.Fatalf("got %d, want 150", got)
	}
}
