package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EncodeSnapshot serializes the five item structures, one JSON document per
// storage key.
func EncodeSnapshot(s Snapshot) (map[string][]byte, error) {
	s.Normalize()

	docs := map[string]any{
		KeyFavorites:       s.Favorites,
		KeyCart:            s.Cart,
		KeyCategories:      s.Categories,
		KeyFavoritesObject: s.FavoritesObject,
		KeyCartObject:      s.CartObject,
	}

	out := make(map[string][]byte, len(docs))
	for key, v := range docs {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		out[key] = data
	}
	return out, nil
}

// DecodeError reports a stored document that no longer parses as its key's
// structure.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unmarshal %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeSnapshot rebuilds a snapshot from stored documents. Keys absent from
// docs decode as empty collections. A document that fails to parse also
// decodes as empty, and is reported as a *DecodeError; the other structures
// are still returned.
func DecodeSnapshot(docs map[string][]byte) (Snapshot, error) {
	var s Snapshot
	var errs []error

	for _, key := range ItemKeys {
		data, ok := docs[key]
		if !ok || len(data) == 0 {
			continue
		}
		if err := s.decodeKey(key, data); err != nil {
			errs = append(errs, &DecodeError{Key: key, Err: err})
		}
	}

	s.Normalize()
	return s, errors.Join(errs...)
}

func (s *Snapshot) decodeKey(key string, data []byte) error {
	switch key {
	case KeyFavorites:
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.Favorites = v
	case KeyCart:
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.Cart = v
	case KeyCategories:
		var v map[string]string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.Categories = v
	case KeyFavoritesObject:
		var v map[string]Item
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.FavoritesObject = v
	case KeyCartObject:
		var v map[string]Item
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		s.CartObject = v
	}
	return nil
}

// EncodeFilterState serializes a filter selection.
func EncodeFilterState(f FilterState) ([]byte, error) {
	f.Normalize()
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", KeyFilters, err)
	}
	return data, nil
}

// DecodeFilterState parses a stored filter selection.
func DecodeFilterState(data []byte) (FilterState, error) {
	var f FilterState
	if err := json.Unmarshal(data, &f); err != nil {
		return DefaultFilterState(), fmt.Errorf("unmarshal %s: %w", KeyFilters, err)
	}
	f.Normalize()
	return f, nil
}
