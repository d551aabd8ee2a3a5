package pipeline

import (
	"context"
	"strings"
	"testing"

	"auctiondb-engine/internal/itemstring"
	"auctiondb-engine/internal/market"
	"auctiondb-engine/internal/meta"
	"auctiondb-engine/internal/store"
)

func mv(v uint64) *uint64 { return &v }

func recordsWith(v uint64, ts int64) *market.MarketValueRecords {
	return market.NewRecords([]market.MarketValueRecord{{Timestamp: ts, MarketValue: mv(v), NumAuctions: 5, MinBuyout: mv(v)}})
}

func oneItemStore(t *testing.T, id uint32, v uint64, ts int64) *store.Store {
	t.Helper()
	s := store.New()
	inc := map[string]store.IncrementSource{
		itemstring.ItemString{Kind: itemstring.Item, ID: id}.Key(): {
			Item:   itemstring.ItemString{Kind: itemstring.Item, ID: id},
			Record: recordsWith(v, ts).Records()[0],
		},
	}
	s.UpdateIncrement(inc, false)
	return s
}

func TestRunRejectsUnknownRealm(t *testing.T) {
	in := Input{
		Window: meta.Window{
			StartTS:         0,
			EndTS:           100,
			ConnectedRealms: map[int][]string{1: {"stormrage"}},
		},
		Region: "us",
	}
	var buf strings.Builder
	_, err := Run(context.Background(), &buf, in, []string{"nowhere"}, 4)
	if err == nil {
		t.Fatal("expected ErrInvalidRealmSet, got nil")
	}
}

func TestRunEndToEnd(t *testing.T) {
	auctions := oneItemStore(t, 42, 1000, 100)
	commodities := oneItemStore(t, 7, 500, 100)

	in := Input{
		Window: meta.Window{
			StartTS:         0,
			EndTS:           100,
			ConnectedRealms: map[int][]string{5: {"stormrage"}},
		},
		CommodityData: commodities,
		ConnectedRealms: []ConnectedRealm{
			{ID: 5, Auctions: map[string]*store.Store{"": auctions}},
		},
		Region: "us",
	}

	var buf strings.Builder
	result, err := Run(context.Background(), &buf, in, []string{"stormrage"}, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RowsWritten == 0 {
		t.Fatal("expected at least one row written")
	}
	out := buf.String()
	if !strings.Contains(out, "AUCTIONDB_REALM_DATA") {
		t.Errorf("missing realm data row: %s", out)
	}
	if !strings.Contains(out, "AUCTIONDB_REGION_COMMODITY") {
		t.Errorf("missing region commodity row: %s", out)
	}
	if !strings.Contains(out, "APP_INFO") {
		t.Errorf("missing trailing APP_INFO row: %s", out)
	}
}

func TestRunSkipsEmptyConnectedRealm(t *testing.T) {
	in := Input{
		Window: meta.Window{
			StartTS:         0,
			EndTS:           100,
			ConnectedRealms: map[int][]string{5: {"stormrage"}},
		},
		ConnectedRealms: []ConnectedRealm{
			{ID: 5, Auctions: map[string]*store.Store{"": store.New()}},
		},
		Region: "us",
	}
	var buf strings.Builder
	result, err := Run(context.Background(), &buf, in, []string{"stormrage"}, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RowsWritten != 0 {
		t.Fatalf("RowsWritten = %d, want 0 (only the trailing APP_INFO is written to buf directly)", result.RowsWritten)
	}
	if !strings.Contains(buf.String(), "APP_INFO") {
		t.Error("missing trailing APP_INFO row")
	}
}
