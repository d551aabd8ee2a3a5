package ingest

import (
	"context"
	"testing"

	"auctiondb-engine/internal/itemstring"
)

func TestBuildIncrementSingleItem(t *testing.T) {
	resp := Response{
		Timestamp: 1000,
		Entries: []Entry{
			CommodityListing{Item: itemstring.CommodityItem{ID: 42}, Qty: 2, UnitPrice: 100},
			CommodityListing{Item: itemstring.CommodityItem{ID: 42}, Qty: 3, UnitPrice: 100},
		},
	}
	out, err := BuildIncrement(context.Background(), resp, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	key := itemstring.FromCommodityItem(itemstring.CommodityItem{ID: 42}).Key()
	entry, ok := out[key]
	if !ok {
		t.Fatal("missing expected item entry")
	}
	if entry.Record.NumAuctions != 5 {
		t.Fatalf("NumAuctions = %d, want 5", entry.Record.NumAuctions)
	}
	if entry.Record.MarketValue == nil || *entry.Record.MarketValue != 100 {
		t.Fatalf("MarketValue = %v, want 100", entry.Record.MarketValue)
	}
}

func TestBuildIncrementSeparatesDistinctItems(t *testing.T) {
	resp := Response{
		Timestamp: 1000,
		Entries: []Entry{
			CommodityListing{Item: itemstring.CommodityItem{ID: 1}, Qty: 1, UnitPrice: 10},
			CommodityListing{Item: itemstring.CommodityItem{ID: 2}, Qty: 1, UnitPrice: 20},
		},
	}
	out, err := BuildIncrement(context.Background(), resp, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestBuildIncrementAuctionBidFallsBackToBuyout(t *testing.T) {
	resp := Response{
		Timestamp: 1000,
		Entries: []Entry{
			AuctionListing{Item: itemstring.AuctionItem{ID: 7}, Qty: 1, Payout: 500},
		},
	}
	out, err := BuildIncrement(context.Background(), resp, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := itemstring.FromAuctionItem(itemstring.AuctionItem{ID: 7}).Key()
	entry := out[key]
	if entry.Record.MinBuyout == nil || *entry.Record.MinBuyout != 500 {
		t.Fatalf("MinBuyout = %v, want 500", entry.Record.MinBuyout)
	}
	if entry.Record.MarketValue == nil || *entry.Record.MarketValue != 500 {
		t.Fatalf("MarketValue = %v, want 500", entry.Record.MarketValue)
	}
}
