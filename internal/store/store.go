// Package store implements C7: a map from ItemString to MarketValueRecords,
// with lazily-built inverted id indexes and a msgpack binary codec.
package store

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/vmihailenco/msgpack/v5"

	"auctiondb-engine/internal/itemstring"
	"auctiondb-engine/internal/logger"
	"auctiondb-engine/internal/market"
)

type entry struct {
	item    itemstring.ItemString
	records *market.MarketValueRecords
}

// Entry is a read-only view of one stored item and its series, returned by
// Entries/Query for callers (the exporter) that only read.
type Entry struct {
	Item    itemstring.ItemString
	Records *market.MarketValueRecords
}

// Store is the mapping ItemString -> MarketValueRecords plus the two
// inverted indexes described in §3. It is single-owner: nothing here is
// safe for concurrent mutation from multiple goroutines (§5).
type Store struct {
	entries    map[string]*entry
	itemIndex  map[uint32][]string
	petIndex   map[uint32][]string
	indexDirty bool
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]*entry), indexDirty: true}
}

// Len reports the number of distinct items held.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns every stored item and its series. The returned slice and
// the *MarketValueRecords it points to must not be mutated by the caller
// except through the accessor methods already exposed on MarketValueRecords.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{Item: e.item, Records: e.records})
	}
	return out
}

func (s *Store) rebuildIndexes() {
	s.itemIndex = make(map[uint32][]string)
	s.petIndex = make(map[uint32][]string)
	for k, e := range s.entries {
		if e.item.Kind == itemstring.Pet {
			s.petIndex[e.item.ID] = append(s.petIndex[e.item.ID], k)
		} else {
			s.itemIndex[e.item.ID] = append(s.itemIndex[e.item.ID], k)
		}
	}
	s.indexDirty = false
}

func (s *Store) get(key string, item itemstring.ItemString) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{item: item, records: market.NewRecords(nil)}
		s.entries[key] = e
		s.indexDirty = true
	}
	return e
}

// Extend merges another store into this one: every record of every item in
// other is appended to the matching (or newly created) entry here.
// Returns (records_added, new_items_created) as in §4.7/S4.
func (s *Store) Extend(other *Store, sort bool) (recordsAdded, newItems int) {
	touched := make(map[string]bool)
	for k, oe := range other.entries {
		_, existed := s.entries[k]
		e := s.get(k, oe.item)
		if !existed {
			newItems++
		}
		for _, r := range oe.records.Records() {
			e.records.Add(r, false)
			recordsAdded++
		}
		if sort {
			touched[k] = true
		}
	}
	if sort {
		for k := range touched {
			s.entries[k].records.Sort()
		}
	}
	return recordsAdded, newItems
}

// IncrementSource has the same fields as ingest.IncrementItem; it is a
// separate struct here so store does not need to import the ingest
// package's concurrency machinery. Callers convert between the two.
type IncrementSource struct {
	Item   itemstring.ItemString
	Record market.MarketValueRecord
}

// UpdateIncrement merges a per-item increment map (one record per item, as
// produced by the ingest package) into this store (§4.7).
func (s *Store) UpdateIncrement(increment map[string]IncrementSource, sort bool) (recordsAdded, newItems int) {
	touched := make(map[string]bool)
	for k, inc := range increment {
		_, existed := s.entries[k]
		e := s.get(k, inc.Item)
		if !existed {
			newItems++
		}
		e.records.Add(inc.Record, false)
		recordsAdded++
		if sort {
			touched[k] = true
		}
	}
	if sort {
		for k := range touched {
			s.entries[k].records.Sort()
		}
	}
	return recordsAdded, newItems
}

// Sort restores ascending timestamp order in every series.
func (s *Store) Sort() {
	for _, e := range s.entries {
		e.records.Sort()
	}
}

// RemoveExpired propagates to every series and returns the total removed.
func (s *Store) RemoveExpired(tsExpires int64) int {
	total := 0
	for _, e := range s.entries {
		total += e.records.RemoveExpired(tsExpires)
	}
	return total
}

// RemoveEmptyEntries drops items whose series is now empty, returning the
// count removed.
func (s *Store) RemoveEmptyEntries() int {
	removed := 0
	for k, e := range s.entries {
		if e.records.Len() == 0 {
			delete(s.entries, k)
			removed++
			s.indexDirty = true
		}
	}
	return removed
}

// Query returns a deep-copy sub-store containing every entry whose
// ItemString carries the given id, across both the item and pet indexes
// (§4.7, S5).
func (s *Store) Query(id uint32) *Store {
	if s.indexDirty {
		s.rebuildIndexes()
	}
	out := New()
	for _, k := range s.itemIndex[id] {
		e := s.entries[k]
		out.entries[k] = &entry{item: e.item, records: e.records.Clone()}
	}
	for _, k := range s.petIndex[id] {
		e := s.entries[k]
		out.entries[k] = &entry{item: e.item, records: e.records.Clone()}
	}
	out.indexDirty = true
	return out
}

// Wire shapes for the binary codec (§6): plain msgpack structs, deliberately
// matching the external schema field-for-field rather than reusing the
// domain types directly, since the wire schema is an opaque external
// encoding the domain model must round-trip through, not drive.
type itemStringMsg struct {
	Type  uint8   `msgpack:"type"`
	ID    uint32  `msgpack:"id"`
	Bonus []int32 `msgpack:"bonus"`
	Mods  []int32 `msgpack:"mods"`
}

type mvRecordMsg struct {
	Timestamp   int64  `msgpack:"timestamp"`
	MarketValue uint64 `msgpack:"market_value"`
	NumAuctions uint32 `msgpack:"num_auctions"`
	MinBuyout   uint64 `msgpack:"min_buyout"`
}

type itemMsg struct {
	ItemString itemStringMsg `msgpack:"item_string"`
	Records    []mvRecordMsg `msgpack:"market_value_records"`
}

type itemDBMsg struct {
	Items []itemMsg `msgpack:"items"`
}

func toMsgSlice(s []int32) []int32 {
	if s == nil {
		return []int32{}
	}
	return s
}

func fromMsgSlice(s []int32) []int32 {
	if len(s) == 0 {
		return nil
	}
	return s
}

// ToBytes encodes the store via msgpack (§6), dropping any item whose
// series is empty.
func (s *Store) ToBytes() ([]byte, error) {
	var db itemDBMsg
	for _, e := range s.entries {
		if e.records.Len() == 0 {
			continue
		}
		recs := e.records.Records()
		rmsgs := make([]mvRecordMsg, len(recs))
		for i, r := range recs {
			var mv, mb uint64
			if r.MarketValue != nil {
				mv = *r.MarketValue
			}
			if r.MinBuyout != nil {
				mb = *r.MinBuyout
			}
			rmsgs[i] = mvRecordMsg{
				Timestamp:   r.Timestamp,
				MarketValue: mv,
				NumAuctions: r.NumAuctions,
				MinBuyout:   mb,
			}
		}
		db.Items = append(db.Items, itemMsg{
			ItemString: itemStringMsg{
				Type:  uint8(e.item.Kind),
				ID:    e.item.ID,
				Bonus: toMsgSlice(e.item.Bonuses),
				Mods:  toMsgSlice(e.item.Mods),
			},
			Records: rmsgs,
		})
	}
	return msgpack.Marshal(&db)
}

// FromBytes decodes a store previously produced by ToBytes.
func FromBytes(data []byte) (*Store, error) {
	var db itemDBMsg
	if err := msgpack.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	out := New()
	for _, im := range db.Items {
		recs := make([]market.MarketValueRecord, len(im.Records))
		for i, rm := range im.Records {
			mv := rm.MarketValue
			mb := rm.MinBuyout
			recs[i] = market.MarketValueRecord{
				Timestamp:   rm.Timestamp,
				MarketValue: &mv,
				NumAuctions: rm.NumAuctions,
				MinBuyout:   &mb,
			}
		}
		item := itemstring.ItemString{
			Kind:    itemstring.Kind(im.ItemString.Type),
			ID:      im.ItemString.ID,
			Bonuses: fromMsgSlice(im.ItemString.Bonus),
			Mods:    fromMsgSlice(im.ItemString.Mods),
		}
		out.entries[item.Key()] = &entry{item: item, records: market.NewRecords(recs)}
	}
	out.indexDirty = true
	return out, nil
}

// ToFile writes the store's binary form to path (§4.7 "thin I/O wrapper").
func (s *Store) ToFile(path string) error {
	data, err := s.ToBytes()
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	logger.Info("STORE", fmt.Sprintf("wrote %s (%s items) to %s", humanize.Bytes(uint64(len(data))), humanize.Comma(int64(s.Len())), path))
	return nil
}

// FromFile reads and decodes a store previously written by ToFile.
func FromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	s, err := FromBytes(data)
	if err != nil {
		return nil, err
	}
	logger.Info("STORE", fmt.Sprintf("read %s (%s items) from %s", humanize.Bytes(uint64(len(data))), humanize.Comma(int64(s.Len())), path))
	return s, nil
}
