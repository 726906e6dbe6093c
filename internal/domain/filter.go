package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// PriceFilterKey is the filters entry holding the [min, max] price range.
const PriceFilterKey = "Price"

// PriceRange is an inclusive price bound, encoded as a two-element array.
type PriceRange struct {
	Min float64
	Max float64
}

func (p PriceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Min, p.Max})
}

func (p *PriceRange) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("price range: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("price range: expected [min, max], got %d values", len(bounds))
	}
	p.Min, p.Max = bounds[0], bounds[1]
	return nil
}

// Filters holds the active filter selection: an optional price range plus
// option lists keyed by category name.
type Filters struct {
	Price   *PriceRange
	Options map[string][]string
}

func (f Filters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Options)+1)
	for k, v := range f.Options {
		out[k] = v
	}
	if f.Price != nil {
		out[PriceFilterKey] = f.Price
	}
	return json.Marshal(out)
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("filters: %w", err)
	}

	out := Filters{Options: make(map[string][]string, len(raw))}
	for k, v := range raw {
		if k == PriceFilterKey {
			var p PriceRange
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out.Price = &p
			continue
		}
		var opts []string
		if err := json.Unmarshal(v, &opts); err != nil {
			return fmt.Errorf("filters: %q: %w", k, err)
		}
		out.Options[k] = opts
	}

	*f = out
	return nil
}

// FilterState is the persisted sort and filter selection.
type FilterState struct {
	Sort    string  `json:"sort"`
	Filters Filters `json:"filters"`
}

// DefaultFilterState is returned when nothing has been saved.
func DefaultFilterState() FilterState {
	return FilterState{Filters: Filters{Options: map[string][]string{}}}
}

// Normalize replaces a nil option map with an empty one.
func (s *FilterState) Normalize() {
	if s.Filters.Options == nil {
		s.Filters.Options = map[string][]string{}
	}
}

// Validate checks the price range and option keys.
func (s FilterState) Validate() error {
	if p := s.Filters.Price; p != nil && p.Min > p.Max {
		return apperrors.InvalidInput(fmt.Sprintf("price range min %v exceeds max %v", p.Min, p.Max))
	}
	for k := range s.Filters.Options {
		if strings.TrimSpace(k) == "" {
			return apperrors.InvalidInput("filter category must not be blank")
		}
		if k == PriceFilterKey {
			return apperrors.InvalidInput("price must be set as a range")
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	out := FilterState{Sort: s.Sort}
	if s.Filters.Price != nil {
		p := *s.Filters.Price
		out.Filters.Price = &p
	}
	if s.Filters.Options != nil {
		out.Filters.Options = make(map[string][]string, len(s.Filters.Options))
		for k, v := range s.Filters.Options {
			out.Filters.Options[k] = slices.Clone(v)
		}
	}
	return out
}

// Keys returns the active filter names in sorted order, Price included.
func (f Filters) Keys() []string {
	keys := slices.Sorted(maps.Keys(f.Options))
	if f.Price != nil {
		keys = append(keys, PriceFilterKey)
		slices.Sort(keys)
	}
	return keys
}
