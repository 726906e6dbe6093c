package domain

// Storage keys. Each holds one JSON document.
const (
	KeyFavorites       = "favorites"
	KeyCart            = "cart"
	KeyCategories      = "categories"
	KeyFavoritesObject = "favoritesObject"
	KeyCartObject      = "cartObject"
	KeyFilters         = "filters"
)

// ItemKeys are the keys written together by an item mutation.
var ItemKeys = []string{KeyFavorites, KeyCart, KeyCategories, KeyFavoritesObject, KeyCartObject}

// CartKeys are the keys removed when the cart is cleared.
var CartKeys = []string{KeyCart, KeyCartObject}

// AllKeys lists every key the cache owns.
var AllKeys = []string{KeyFavorites, KeyCart, KeyCategories, KeyFavoritesObject, KeyCartObject, KeyFilters}
