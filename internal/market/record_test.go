package market

import "testing"

func TestRecordOrderingByTimestampOnly(t *testing.T) {
	a := MarketValueRecord{Timestamp: 100, MarketValue: u64(5)}
	b := MarketValueRecord{Timestamp: 200, MarketValue: u64(1)}
	if !a.Less(b) {
		t.Fatal("a should sort before b")
	}
	if a.Equal(b) {
		t.Fatal("distinct timestamps must not be equal")
	}
}

func TestRecordEqualIgnoresOtherFields(t *testing.T) {
	a := MarketValueRecord{Timestamp: 100, MarketValue: u64(5), NumAuctions: 3}
	b := MarketValueRecord{Timestamp: 100, MarketValue: u64(999), NumAuctions: 1}
	if !a.Equal(b) {
		t.Fatal("records with equal timestamps must compare equal")
	}
}
