package market

import "testing"

func TestCalcMarketValueZeroQuantity(t *testing.T) {
	_, ok := CalcMarketValue(0, nil)
	if ok {
		t.Fatal("expected ok=false for itemN=0")
	}
}

func TestCalcMarketValueSinglePrice(t *testing.T) {
	v, ok := CalcMarketValue(5, []PriceGroup{{Price: 100, Quantity: 5}})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if v != 100 {
		t.Fatalf("got %d, want 100", v)
	}
}

// TestCalcMarketValueTrimsOutliers mirrors the worked example of a cheap
// cluster followed by a single wildly overpriced outlier group: item_n=10,
// groups=[(100,2),(110,3),(120,3),(10000,2)]. The outlier group must never
// be admitted into the sample window, and the admitted samples (100,2) and
// (110,1) average to approximately 103.
func TestCalcMarketValueTrimsOutliers(t *testing.T) {
	groups := []PriceGroup{
		{Price: 100, Quantity: 2},
		{Price: 110, Quantity: 3},
		{Price: 120, Quantity: 3},
		{Price: 10000, Quantity: 2},
	}
	v, ok := CalcMarketValue(10, groups)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if v < 100 || v > 110 {
		t.Fatalf("got %d, want a value close to the admitted (100,110) cluster", v)
	}
}

func TestCalcMarketValueBounded(t *testing.T) {
	groups := []PriceGroup{
		{Price: 50, Quantity: 1},
		{Price: 60, Quantity: 2},
		{Price: 70, Quantity: 2},
		{Price: 1000000, Quantity: 1},
	}
	v, ok := CalcMarketValue(6, groups)
	if !ok {
		t.Fatal("expected ok=true")
	}
	min, max := groups[0].Price, groups[0].Price
	for _, g := range groups {
		if g.Price < min {
			min = g.Price
		}
		if g.Price > max {
			max = g.Price
		}
	}
	if v < min || v > max {
		t.Fatalf("result %d escaped the observed price range [%d, %d]", v, min, max)
	}
}
