package config

import "errors"

var (
	// ErrNoProducts indicates that the products file lists nothing to track.
	ErrNoProducts = errors.New("no products configured")
	// ErrInvalidProduct indicates a product entry with missing or unsafe fields.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrDuplicateSlug indicates two products share a slug.
	ErrDuplicateSlug = errors.New("duplicate product slug")
)
