package domain

import (
	"maps"
	"slices"
)

// ItemState is one item's membership as seen by a screen. Category is nil
// when the item has never been written.
type ItemState struct {
	IsFavorite bool    `json:"isFavorite"`
	IsInCart   bool    `json:"isInCart"`
	Category   *string `json:"category"`
}

// Snapshot is the aggregate broadcast after every item mutation and returned
// by a full read. Favorites/FavoritesObject and Cart/CartObject are parallel
// set and index pairs; Categories is a write-through log that is never pruned.
type Snapshot struct {
	Favorites       []string          `json:"favorites"`
	Cart            []string          `json:"cart"`
	Categories      map[string]string `json:"categories"`
	FavoritesObject map[string]Item   `json:"favoritesObject"`
	CartObject      map[string]Item   `json:"cartObject"`
}

// EmptySnapshot returns a snapshot whose collections are empty but non-nil, so
// it encodes as [] and {} rather than null.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Favorites:       []string{},
		Cart:            []string{},
		Categories:      map[string]string{},
		FavoritesObject: map[string]Item{},
		CartObject:      map[string]Item{},
	}
}

// Normalize replaces nil collections with empty ones.
func (s *Snapshot) Normalize() {
	if s.Favorites == nil {
		s.Favorites = []string{}
	}
	if s.Cart == nil {
		s.Cart = []string{}
	}
	if s.Categories == nil {
		s.Categories = map[string]string{}
	}
	if s.FavoritesObject == nil {
		s.FavoritesObject = map[string]Item{}
	}
	if s.CartObject == nil {
		s.CartObject = map[string]Item{}
	}
}

// Apply sets the item's favorite and cart membership and records its
// category.
//
// Adding an id that is already a member leaves its stored record untouched.
// Removing an absent id is a no-op. The category is written whatever the
// flags are.
func (s *Snapshot) Apply(item Item, isFavorite, isInCart bool) {
	s.Normalize()

	s.Favorites = applyMembership(s.Favorites, s.FavoritesObject, item, isFavorite)
	s.Cart = applyMembership(s.Cart, s.CartObject, item, isInCart)
	s.Categories[item.ID] = item.Category
}

func applyMembership(set []string, index map[string]Item, item Item, member bool) []string {
	if member {
		if !slices.Contains(set, item.ID) {
			set = append(set, item.ID)
			index[item.ID] = item.Clone()
		}
		return set
	}

	delete(index, item.ID)
	return slices.DeleteFunc(set, func(id string) bool { return id == item.ID })
}

// ClearCart empties the cart set and index.
func (s *Snapshot) ClearCart() {
	s.Cart = []string{}
	s.CartObject = map[string]Item{}
}

// State reports the membership of one item id.
func (s Snapshot) State(id string) ItemState {
	st := ItemState{
		IsFavorite: slices.Contains(s.Favorites, id),
		IsInCart:   slices.Contains(s.Cart, id),
	}
	if c, ok := s.Categories[id]; ok {
		st.Category = &c
	}
	return st
}

// Clone returns a deep copy that shares no collections with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Favorites:       slices.Clone(s.Favorites),
		Cart:            slices.Clone(s.Cart),
		Categories:      maps.Clone(s.Categories),
		FavoritesObject: cloneIndex(s.FavoritesObject),
		CartObject:      cloneIndex(s.CartObject),
	}
	out.Normalize()
	return out
}

func cloneIndex(in map[string]Item) map[string]Item {
	if in == nil {
		return nil
	}
	out := make(map[string]Item, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
