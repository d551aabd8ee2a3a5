// Package itemstring implements the canonical item fingerprint (C2):
// a small, hashable composite key derived from a raw auction or commodity
// item, with a textual add-on form and hooks for the binary wire form
// used by internal/store.
package itemstring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"auctiondb-engine/internal/curve"
)

// ErrInvalidItemString is the error for a malformed text form. This
// package renders the text form (ToStr) but has no parser for it, so no
// function here returns this error.
var ErrInvalidItemString = errors.New("itemstring: invalid text form")

// ErrInvalidMods is the error for an odd-length mods sequence. The
// constructors in this package always build even-length mods and return
// no error, so no function here returns it.
var ErrInvalidMods = errors.New("itemstring: mods must have even length")

// Kind distinguishes a regular item from a battle pet.
type Kind uint8

const (
	Item Kind = iota
	Pet
)

func (k Kind) String() string {
	if k == Pet {
		return "p"
	}
	return "i"
}

// Sentinel mod types encoding a derived item level directly into the mods
// slice, so the binary schema (which already allows signed ints) needs no
// shape change to carry it (§9 design notes).
const (
	AbsIlvl int32 = -1
	RelIlvl int32 = -2
)

// KeptModifierTypes are the only raw modifier types ItemString keeps.
var KeptModifierTypes = map[int32]bool{9: true, 29: true, 30: true}

// ModTypePlayerLevel is the modifier type carrying the player level that
// rolled the item, consumed by the curve resolver and otherwise dropped.
const ModTypePlayerLevel int32 = 9

// ItemString is an immutable, hashable item fingerprint. Bonuses and Mods
// are canonicalized (filtered, sorted, even-length) by the constructors in
// this package; callers must not mutate the returned slices.
type ItemString struct {
	Kind    Kind
	ID      uint32
	Bonuses []int32 // nil when absent; always sorted ascending
	Mods    []int32 // nil when absent; even length, pairs sorted by mod type
}

// Modifier is a single raw item modifier (mod_type, mod_value) pair as
// seen on a raw auction item, before filtering.
type Modifier struct {
	Type  int32
	Value int32
}

// AuctionItem is the minimal shape of a per-realm auction listing's item
// payload needed to derive an ItemString (§4.2, §9 "polymorphism": the
// concrete transport is out of scope, only these fields matter).
type AuctionItem struct {
	ID           uint32
	PetSpeciesID *uint32
	BonusLists   []int32
	Modifiers    []Modifier
}

// CommodityItem is a fungible listing indexed only by item id.
type CommodityItem struct {
	ID uint32
}

// Equal reports whether two ItemStrings carry the same identity. Two
// canonically-constructed ItemStrings are Equal iff every field compares
// pairwise equal (§3).
func (s ItemString) Equal(o ItemString) bool {
	if s.Kind != o.Kind || s.ID != o.ID {
		return false
	}
	return int32SliceEqual(s.Bonuses, o.Bonuses) && int32SliceEqual(s.Mods, o.Mods)
}

func int32SliceEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical, comparable string suitable as a Go map key.
// This is distinct from the textual add-on form (ToStr): it never collides
// between an Item and a Pet of the same id, and it always carries the full
// bonuses/mods payload regardless of whether a derived ilvl collapsed them
// for display purposes.
func (s ItemString) Key() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(s.ID), 10))
	b.WriteString(":b")
	for _, v := range s.Bonuses {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	b.WriteString(":m")
	for _, v := range s.Mods {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	return b.String()
}

// FromCommodityItem builds the ItemString for a commodity listing (§4.2):
// always a bare Item keyed only by id.
func FromCommodityItem(item CommodityItem) ItemString {
	return ItemString{Kind: Item, ID: item.ID}
}

// FromAuctionItem builds the ItemString for a per-realm auction listing
// (§4.2). Curve resolution errors are swallowed locally (§7): the item
// falls back to carrying its filtered bonuses/mods with no derived ilvl.
func FromAuctionItem(item AuctionItem) ItemString {
	if item.PetSpeciesID != nil {
		return ItemString{Kind: Pet, ID: *item.PetSpeciesID}
	}

	var bonuses []int32
	if len(item.BonusLists) > 0 {
		bonuses = make([]int32, 0, len(item.BonusLists))
		for _, bid := range item.BonusLists {
			if _, ok := curve.MapBonuses[bid]; ok {
				bonuses = append(bonuses, bid)
			}
		}
	}

	var plvl *int32
	var mods []int32
	if len(item.Modifiers) > 0 {
		kept := make([]Modifier, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			if !KeptModifierTypes[m.Type] {
				continue
			}
			if m.Type == ModTypePlayerLevel {
				v := m.Value
				plvl = &v
			}
			kept = append(kept, m)
		}
		slices.SortFunc(kept, func(a, b Modifier) int { return int(a.Type) - int(b.Type) })
		mods = make([]int32, 0, len(kept)*2)
		for _, m := range kept {
			mods = append(mods, m.Type, m.Value)
		}
	}

	// Resolver runs on the filtered-but-not-yet-sorted bonus list,
	// preserving the order observed in the original implementation (§9
	// open question a): downstream curve lookups don't depend on order,
	// but we still feed it pre-sort to match behavior exactly.
	result, ok, err := curve.Resolve(bonuses, plvl)
	if err != nil {
		ok = false
	}

	if len(bonuses) > 1 {
		sorted := append([]int32(nil), bonuses...)
		slices.Sort(sorted)
		bonuses = sorted
	}

	if !ok {
		return ItemString{
			Kind:    Item,
			ID:      item.ID,
			Bonuses: nilIfEmpty(bonuses),
			Mods:    nilIfEmpty(mods),
		}
	}

	sentinel := AbsIlvl
	if result.Relative {
		sentinel = RelIlvl
	}
	return ItemString{
		Kind: Item,
		ID:   item.ID,
		Mods: []int32{sentinel, result.ILvl},
	}
}

func nilIfEmpty(s []int32) []int32 {
	if len(s) == 0 {
		return nil
	}
	return s
}

// IsNumeric reports whether s contains only decimal digits — used by the
// exporter to decide whether an itemString field needs quoting (§4.8).
func IsNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ToStr renders the textual add-on form (§6).
func (s ItemString) ToStr() string {
	if len(s.Mods) == 2 && (s.Mods[0] == AbsIlvl || s.Mods[0] == RelIlvl) {
		ilvlKey, ilvlVal := s.Mods[0], s.Mods[1]
		if ilvlKey == AbsIlvl {
			return fmt.Sprintf("%s:%d::i%d", s.Kind, s.ID, ilvlVal)
		}
		sign := ""
		if ilvlVal > 0 {
			sign = "+"
		}
		return fmt.Sprintf("%s:%d::%s%d", s.Kind, s.ID, sign, ilvlVal)
	}

	var bonusStr, modStr string
	if len(s.Bonuses) > 0 {
		parts := make([]string, len(s.Bonuses))
		for i, v := range s.Bonuses {
			parts[i] = strconv.FormatInt(int64(v), 10)
		}
		bonusStr = strconv.Itoa(len(s.Bonuses)) + ":" + strings.Join(parts, ":")
	}
	if len(s.Mods) > 0 {
		parts := make([]string, len(s.Mods))
		for i, v := range s.Mods {
			parts[i] = strconv.FormatInt(int64(v), 10)
		}
		modStr = strconv.Itoa(len(s.Mods)/2) + ":" + strings.Join(parts, ":")
	}

	switch {
	case bonusStr != "" && modStr != "":
		return strings.Join([]string{s.Kind.String(), strconv.FormatUint(uint64(s.ID), 10), "", bonusStr, modStr}, ":")
	case bonusStr != "":
		return strings.Join([]string{s.Kind.String(), strconv.FormatUint(uint64(s.ID), 10), "", bonusStr}, ":")
	case modStr != "":
		return strings.Join([]string{s.Kind.String(), strconv.FormatUint(uint64(s.ID), 10), "", "0", modStr}, ":")
	case s.Kind == Item:
		return strconv.FormatUint(uint64(s.ID), 10)
	default:
		return fmt.Sprintf("%s:%d", s.Kind, s.ID)
	}
}

func (s ItemString) String() string { return s.ToStr() }
