package market

import (
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// DayWeights are the 15 weights applied to consecutive days, oldest to
// newest, when computing the weighted market value (§4.4, §6).
var DayWeights = [15]int{4, 5, 7, 10, 15, 21, 28, 38, 33, 34, 45, 75, 100, 125, 132}

// HistoricalDays is the window size for the unweighted historical average.
const HistoricalDays = 60

// MarketValueRecords is an ordered time series of snapshots for one item,
// intended ascending by timestamp (§3, §4.4).
type MarketValueRecords struct {
	recs []MarketValueRecord
}

// NewRecords builds a MarketValueRecords from an existing slice without
// copying or sorting it — callers that already have ascending data can
// avoid the cost of Add-in-a-loop.
func NewRecords(recs []MarketValueRecord) *MarketValueRecords {
	return &MarketValueRecords{recs: recs}
}

// Len reports the number of records held.
func (m *MarketValueRecords) Len() int {
	if m == nil {
		return 0
	}
	return len(m.recs)
}

// Records returns the underlying slice. Callers must not mutate it.
func (m *MarketValueRecords) Records() []MarketValueRecord {
	if m == nil {
		return nil
	}
	return m.recs
}

// Clone deep-copies the series, used by Store.Query (§4.7 "deep copy
// sub-store").
func (m *MarketValueRecords) Clone() *MarketValueRecords {
	if m == nil {
		return NewRecords(nil)
	}
	cp := make([]MarketValueRecord, len(m.recs))
	copy(cp, m.recs)
	return NewRecords(cp)
}

// Add appends a record, optionally restoring ascending order (§4.4).
// Returns 1, matching the Python original's "records added" count.
func (m *MarketValueRecords) Add(r MarketValueRecord, doSort bool) int {
	m.recs = append(m.recs, r)
	if doSort {
		m.Sort()
	}
	return 1
}

// Sort restores ascending-by-timestamp order (§3 property 4).
func (m *MarketValueRecords) Sort() {
	slices.SortStableFunc(m.recs, func(a, b MarketValueRecord) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
}

// RemoveExpired drops the ascending prefix with Timestamp <= tsExpires and
// returns how many records were removed (§3, §8 property 5: idempotent).
func (m *MarketValueRecords) RemoveExpired(tsExpires int64) int {
	i := 0
	for ; i < len(m.recs); i++ {
		if m.recs[i].Timestamp > tsExpires {
			break
		}
	}
	m.recs = m.recs[i:]
	return i
}

// GetRecentNumAuctions returns the newest record's NumAuctions if it is
// recent enough and nonzero, else 0 (§4.4).
func (m *MarketValueRecords) GetRecentNumAuctions(tsLastUpdateBegin int64) uint32 {
	if m.Len() == 0 {
		return 0
	}
	last := m.recs[len(m.recs)-1]
	if last.Timestamp >= tsLastUpdateBegin && last.NumAuctions != 0 {
		return last.NumAuctions
	}
	return 0
}

// GetRecentMinBuyout mirrors GetRecentNumAuctions for MinBuyout.
func (m *MarketValueRecords) GetRecentMinBuyout(tsLastUpdateBegin int64) uint64 {
	if m.Len() == 0 {
		return 0
	}
	last := m.recs[len(m.recs)-1]
	if last.Timestamp >= tsLastUpdateBegin && last.MinBuyout != nil && *last.MinBuyout != 0 {
		return *last.MinBuyout
	}
	return 0
}

// GetRecentMarketValue mirrors GetRecentNumAuctions for MarketValue.
func (m *MarketValueRecords) GetRecentMarketValue(tsLastUpdateBegin int64) uint64 {
	if m.Len() == 0 {
		return 0
	}
	last := m.recs[len(m.recs)-1]
	if last.Timestamp >= tsLastUpdateBegin && last.MarketValue != nil && *last.MarketValue != 0 {
		return *last.MarketValue
	}
	return 0
}

// averageByDay buckets records into nDays 1-day-wide buckets ending at
// tsNow and returns, in chronological order (oldest first), each bucket's
// mean MarketValue or nil if the bucket is empty (§4.4). Records are
// assumed sorted ascending by timestamp, so walking backwards lets us stop
// as soon as we fall outside the window.
func averageByDay(recs []MarketValueRecord, tsNow int64, nDays int) []*float64 {
	buckets := make(map[int][]float64)
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		if r.MarketValue == nil {
			continue
		}
		day := int((tsNow - r.Timestamp) / SecondsPerDay)
		if day < 0 {
			continue
		}
		if day >= nDays {
			break
		}
		buckets[day] = append(buckets[day], float64(*r.MarketValue))
	}

	daysAvg := make([]*float64, nDays)
	for day, vals := range buckets {
		avg := stat.Mean(vals, nil)
		daysAvg[nDays-day-1] = &avg
	}
	return daysAvg
}

func roundHalfUp(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(v + 0.5)
}

// GetHistoricalMarketValue is the unweighted 60-day average of day-bucket
// averages (§4.4). Returns 0 for an empty series or when every record has
// expired out of the window.
func (m *MarketValueRecords) GetHistoricalMarketValue(tsNow int64) uint64 {
	if m.Len() == 0 {
		return 0
	}
	daysAvg := averageByDay(m.recs, tsNow, HistoricalDays)

	var present []float64
	for _, a := range daysAvg {
		if a != nil {
			present = append(present, *a)
		}
	}
	if len(present) == 0 {
		return 0
	}
	return roundHalfUp(stat.Mean(present, nil))
}

// GetWeightedMarketValue is the 15-day weighted average of day-bucket
// averages using DayWeights (§4.4). Returns 0 when every weight's bucket
// is empty.
func (m *MarketValueRecords) GetWeightedMarketValue(tsNow int64) uint64 {
	if m.Len() == 0 {
		return 0
	}
	daysAvg := averageByDay(m.recs, tsNow, len(DayWeights))

	var values, weights []float64
	for i, a := range daysAvg {
		if a != nil {
			values = append(values, *a)
			weights = append(weights, float64(DayWeights[i]))
		}
	}
	if len(weights) == 0 {
		return 0
	}
	return roundHalfUp(stat.Mean(values, weights))
}
