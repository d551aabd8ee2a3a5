// Package ingest implements the increment builder (C6): folding a raw
// marketplace response into one MarketValueRecord per item.
package ingest

import (
	"container/heap"
	"context"

	"golang.org/x/sync/errgroup"

	"auctiondb-engine/internal/itemstring"
	"auctiondb-engine/internal/market"
)

// Entry is the capability set a response entry must expose (§9
// "Polymorphism"): enough to derive an ItemString and fold it into a
// price/quantity distribution, regardless of whether it came from a
// per-realm auction listing or a region-wide commodity listing.
type Entry interface {
	ItemString() itemstring.ItemString
	Quantity() uint32
	// Price is bid-fallback-to-buyout for a per-realm auction, or the
	// commodity unit price for a commodity listing.
	Price() uint64
	// Buyout is 0 when the listing carries no buyout.
	Buyout() uint64
}

// AuctionListing is a per-realm auction-house entry.
type AuctionListing struct {
	Item   itemstring.AuctionItem
	Qty    uint32
	Bid    uint64
	Payout uint64 // buyout; 0 when the listing carries none
}

func (a AuctionListing) ItemString() itemstring.ItemString { return itemstring.FromAuctionItem(a.Item) }
func (a AuctionListing) Quantity() uint32                  { return a.Qty }
func (a AuctionListing) Buyout() uint64                    { return a.Payout }

// Price is the bid if one was placed, falling back to the buyout (§4.6).
func (a AuctionListing) Price() uint64 {
	if a.Bid != 0 {
		return a.Bid
	}
	return a.Payout
}

// CommodityListing is a region-wide fungible listing, indexed only by
// item id and always carrying a unit price (no bid).
type CommodityListing struct {
	Item      itemstring.CommodityItem
	Qty       uint32
	UnitPrice uint64
}

func (c CommodityListing) ItemString() itemstring.ItemString {
	return itemstring.FromCommodityItem(c.Item)
}
func (c CommodityListing) Quantity() uint32 { return c.Qty }
func (c CommodityListing) Price() uint64    { return c.UnitPrice }
func (c CommodityListing) Buyout() uint64   { return c.UnitPrice }

// Response is one snapshot of the marketplace: a timestamp plus whatever
// mix of auction and commodity entries it carried.
type Response struct {
	Timestamp int64
	Entries   []Entry
}

// IncrementItem pairs the ItemString derived for an item with the single
// MarketValueRecord computed for it in this response.
type IncrementItem struct {
	Item   itemstring.ItemString
	Record market.MarketValueRecord
}

type priceQty struct {
	price uint64
	qty   uint32
}

type priceHeap []priceQty

func (h priceHeap) Len() int            { return len(h) }
func (h priceHeap) Less(i, j int) bool  { return h[i].price < h[j].price }
func (h priceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *priceHeap) Push(x interface{}) { *h = append(*h, x.(priceQty)) }
func (h *priceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type accumulator struct {
	item          itemstring.ItemString
	totalQuantity uint64
	minBuyout     uint64
	prices        priceHeap
}

// drain pops the heap into ascending (price, quantity) groups, merging
// consecutive equal prices — the "distinct prices" shape C5 expects.
func (a *accumulator) drain() []market.PriceGroup {
	h := make(priceHeap, len(a.prices))
	copy(h, a.prices)

	var groups []market.PriceGroup
	for h.Len() > 0 {
		pq := heap.Pop(&h).(priceQty)
		if n := len(groups); n > 0 && groups[n-1].Price == pq.price {
			groups[n-1].Quantity += uint64(pq.qty)
		} else {
			groups = append(groups, market.PriceGroup{Price: pq.price, Quantity: uint64(pq.qty)})
		}
	}
	return groups
}

// BuildIncrement implements C6: group entries by item, then for each item
// drain its price distribution through the market-value engine, fanned
// out across items with bounded concurrency (§4.6/§5). Items for which the
// engine yields no value (item_n == 0, impossible here since every
// accumulated item has at least one listing, kept as a defensive case)
// are simply absent from the result.
func BuildIncrement(ctx context.Context, resp Response, concurrency int) (map[string]IncrementItem, error) {
	accs := make(map[string]*accumulator)
	keys := make([]string, 0)

	for _, e := range resp.Entries {
		is := e.ItemString()
		key := is.Key()
		a, ok := accs[key]
		if !ok {
			a = &accumulator{item: is}
			accs[key] = a
			keys = append(keys, key)
		}
		a.totalQuantity += uint64(e.Quantity())
		if b := e.Buyout(); b != 0 && (a.minBuyout == 0 || b < a.minBuyout) {
			a.minBuyout = b
		}
		heap.Push(&a.prices, priceQty{price: e.Price(), qty: e.Quantity()})
	}

	results := make([]IncrementItem, len(keys))
	computed := make([]bool, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			a := accs[key]
			groups := a.drain()
			value, ok := market.CalcMarketValue(a.totalQuantity, groups)
			if !ok {
				return nil
			}
			minBuyout := a.minBuyout
			results[i] = IncrementItem{
				Item: a.item,
				Record: market.MarketValueRecord{
					Timestamp:   resp.Timestamp,
					MarketValue: &value,
					NumAuctions: uint32(a.totalQuantity),
					MinBuyout:   &minBuyout,
				},
			}
			computed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]IncrementItem, len(keys))
	for i, key := range keys {
		if computed[i] {
			out[key] = results[i]
		}
	}
	return out, nil
}
