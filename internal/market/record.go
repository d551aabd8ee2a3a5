// Package market implements the price statistics core: a single snapshot
// record (C3), an ordered per-item time series with day-bucketed rolling
// averages (C4), and the robust trimmed-mean engine (C5).
package market

// SecondsPerDay is the bucket width used by the day-bucketing algorithm
// in MarketValueRecords (§6).
const SecondsPerDay int64 = 86400

// MarketValueRecord is a single snapshot datum for one item. Ordering
// between records is by Timestamp only — ties in the other fields never
// affect sort order or equality for this purpose (§3).
type MarketValueRecord struct {
	Timestamp   int64
	MarketValue *uint64 // nil when the item had no sellable auctions
	NumAuctions uint32
	MinBuyout   *uint64 // nil or 0 when no auction in the snapshot had a buyout (BuildIncrement stores 0)
}

// Less orders two records by timestamp only.
func (r MarketValueRecord) Less(o MarketValueRecord) bool { return r.Timestamp < o.Timestamp }

// Equal compares records by timestamp only, matching the Python original's
// total_ordering contract (§3, §8 property 4).
func (r MarketValueRecord) Equal(o MarketValueRecord) bool { return r.Timestamp == o.Timestamp }

func u64(v uint64) *uint64 { return &v }
