package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// Well-known display attributes. The cache stores them but never reads them.
const (
	AttrImage        = "image"
	AttrBrand        = "brand"
	AttrName         = "name"
	AttrPrice        = "price"
	AttrSelectedSize = "selected_size"
)

// Item is a purchasable product as the screens hand it to the cache. Only ID
// and Category carry meaning here; every other field travels in Attributes
// and is written back exactly as received.
type Item struct {
	ID         string
	Category   string
	Attributes map[string]any
}

// NewItem builds an item with an empty attribute bag.
func NewItem(id, category string) Item {
	return Item{ID: id, Category: category, Attributes: map[string]any{}}
}

// With returns a copy of the item with one attribute set.
func (i Item) With(key string, value any) Item {
	attrs := make(map[string]any, len(i.Attributes)+1)
	maps.Copy(attrs, i.Attributes)
	attrs[key] = value
	i.Attributes = attrs
	return i
}

// Attr returns a display attribute.
func (i Item) Attr(key string) (any, bool) {
	v, ok := i.Attributes[key]
	return v, ok
}

// ValidateID checks that the item can be looked up.
func (i Item) ValidateID() error {
	if strings.TrimSpace(i.ID) == "" {
		return apperrors.InvalidInput("item id is required")
	}
	return nil
}

// Validate checks that the item can be written.
func (i Item) Validate() error {
	if err := i.ValidateID(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Category) == "" {
		return apperrors.InvalidInput("item category is required")
	}
	return nil
}

// Clone copies the attribute bag so the copy can be handed out safely.
func (i Item) Clone() Item {
	if i.Attributes != nil {
		i.Attributes = maps.Clone(i.Attributes)
	}
	return i
}

// MarshalJSON flattens the item into a single object. Category is omitted when
// the caller never supplied one.
func (i Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Attributes)+2)
	for k, v := range i.Attributes {
		if k == "id" || k == "category" {
			continue
		}
		out[k] = v
	}
	out["id"] = i.ID
	if i.Category != "" {
		out["category"] = i.Category
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat item object. Numbers are kept as json.Number so
// display values such as price round-trip without float conversion.
func (i *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("item: expected object, got null")
	}

	var item Item
	switch id := raw["id"].(type) {
	case string:
		item.ID = id
	case json.Number:
		item.ID = id.String()
	case nil:
	default:
		return fmt.Errorf("item: id must be a string, got %T", id)
	}

	switch c := raw["category"].(type) {
	case string:
		item.Category = c
	case nil:
	default:
		return fmt.Errorf("item %q: category must be a string, got %T", item.ID, c)
	}

	delete(raw, "id")
	delete(raw, "category")
	item.Attributes = raw

	*i = item
	return nil
}
