package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"olx-price-index/models"
)

// slugRegexp restricts slugs to names safe for data/<slug>.csv.
var slugRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

type productsFile struct {
	Products []models.Product `yaml:"products"`
}

// LoadProducts reads and validates the products list at path.
// An empty list is returned with ErrNoProducts.
func LoadProducts(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	var pf productsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse products yaml: %w", err)
	}

	for i := range pf.Products {
		p := &pf.Products[i]
		p.Slug = strings.TrimSpace(p.Slug)
		p.Name = strings.TrimSpace(p.Name)
		p.Query = strings.TrimSpace(p.Query)
		p.Emoji = strings.TrimSpace(p.Emoji)
	}

	if err := ValidateProducts(pf.Products); err != nil {
		return nil, err
	}
	if len(pf.Products) == 0 {
		return nil, ErrNoProducts
	}
	return pf.Products, nil
}

// ValidateProducts checks required fields, slug safety and slug uniqueness.
func ValidateProducts(products []models.Product) error {
	seen := make(map[string]int, len(products))
	for i, p := range products {
		switch {
		case p.Slug == "":
			return fmt.Errorf("%w: entry %d: slug is required", ErrInvalidProduct, i)
		case !slugRegexp.MatchString(p.Slug):
			return fmt.Errorf("%w: entry %d: slug %q must match %s", ErrInvalidProduct, i, p.Slug, slugRegexp)
		case p.Name == "":
			return fmt.Errorf("%w: %s: name is required", ErrInvalidProduct, p.Slug)
		case p.Query == "":
			return fmt.Errorf("%w: %s: query is required", ErrInvalidProduct, p.Slug)
		}
		if j, dup := seen[p.Slug]; dup {
			return fmt.Errorf("%w: %q (entries %d and %d)", ErrDuplicateSlug, p.Slug, j, i)
		}
		seen[p.Slug] = i
	}
	return nil
}
