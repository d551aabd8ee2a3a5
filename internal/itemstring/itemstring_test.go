package itemstring

import "testing"

func TestFromCommodityItem(t *testing.T) {
	s := FromCommodityItem(CommodityItem{ID: 1234})
	if s.Kind != Item || s.ID != 1234 || s.Bonuses != nil || s.Mods != nil {
		t.Fatalf("got %+v", s)
	}
	if got, want := s.ToStr(), "1234"; got != want {
		t.Fatalf("ToStr() = %q, want %q", got, want)
	}
}

func TestFromAuctionItemPet(t *testing.T) {
	petID := uint32(99)
	s := FromAuctionItem(AuctionItem{ID: 111, PetSpeciesID: &petID})
	if s.Kind != Pet || s.ID != 99 {
		t.Fatalf("got %+v", s)
	}
}

func TestFromAuctionItemCurveDerivedIlvl(t *testing.T) {
	s := FromAuctionItem(AuctionItem{
		ID:         123,
		BonusLists: []int32{7},
		Modifiers:  []Modifier{{Type: ModTypePlayerLevel, Value: 30}},
	})
	if got, want := s.ToStr(), "i:123::i54"; got != want {
		t.Fatalf("ToStr() = %q, want %q", got, want)
	}
}

func TestFromAuctionItemRawBonusesAndMods(t *testing.T) {
	s := FromAuctionItem(AuctionItem{
		ID:         456,
		BonusLists: []int32{1472, 999}, // 999 is unknown, must be filtered out
		Modifiers:  []Modifier{{Type: 29, Value: 7}, {Type: 9, Value: 1}},
	})
	// 1472 is a relative +5 bonus, so it resolves to a derived ilvl: the
	// bonuses are dropped and mods collapse to the (RelIlvl, 5) pair.
	if s.Bonuses != nil {
		t.Fatalf("bonuses = %v, want nil once an ilvl is derived", s.Bonuses)
	}
	if len(s.Mods) != 2 || s.Mods[0] != RelIlvl || s.Mods[1] != 5 {
		t.Fatalf("mods = %v, want [%d 5]", s.Mods, RelIlvl)
	}

	// With only an unknown bonus nothing resolves, so the filtered mods are
	// kept and must be sorted by type ascending: (9,1) before (29,7).
	s = FromAuctionItem(AuctionItem{
		ID:         456,
		BonusLists: []int32{999},
		Modifiers:  []Modifier{{Type: 29, Value: 7}, {Type: 9, Value: 1}},
	})
	if s.Bonuses != nil {
		t.Fatalf("bonuses = %v, want nil (999 filtered out)", s.Bonuses)
	}
	if len(s.Mods) != 4 || s.Mods[0] != 9 || s.Mods[1] != 1 || s.Mods[2] != 29 || s.Mods[3] != 7 {
		t.Fatalf("mods = %v", s.Mods)
	}
}

func TestEqual(t *testing.T) {
	a := ItemString{Kind: Item, ID: 1, Bonuses: []int32{1, 2}, Mods: []int32{9, 3}}
	b := ItemString{Kind: Item, ID: 1, Bonuses: []int32{1, 2}, Mods: []int32{9, 3}}
	c := ItemString{Kind: Item, ID: 1, Bonuses: []int32{1, 3}, Mods: []int32{9, 3}}
	if !a.Equal(b) {
		t.Fatal("a and b must be equal")
	}
	if a.Equal(c) {
		t.Fatal("a and c must not be equal")
	}
	if a.Key() != b.Key() {
		t.Fatal("equal ItemStrings must share a canonical key")
	}
	if a.Key() == c.Key() {
		t.Fatal("distinct ItemStrings must not collide on canonical key")
	}
}

func TestKeyDoesNotCollideAcrossKind(t *testing.T) {
	item := ItemString{Kind: Item, ID: 5}
	pet := ItemString{Kind: Pet, ID: 5}
	if item.Key() == pet.Key() {
		t.Fatal("an item and a pet with the same id must not share a key")
	}
}

func TestIsNumeric(t *testing.T) {
	cases := map[string]bool{
		"1234": true,
		"":     false,
		"12a4": false,
		"0":    true,
	}
	for in, want := range cases {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}
