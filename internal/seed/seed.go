// Package seed loads an initial catalog and customer list from YAML.
package seed

import (
	"os"
	"time"

	"techstore/internal/domain"
	"techstore/internal/store"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the seed document
type File struct {
	Products  []Product  `yaml:"products"`
	Customers []Customer `yaml:"customers"`
}

// Product is one catalog entry. Only the fields of its kind are read.
type Product struct {
	Code  string `yaml:"code"`
	Kind  string `yaml:"kind"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Stock int    `yaml:"stock"`

	WarrantyMonths int    `yaml:"warranty_months,omitempty"`
	Brand          string `yaml:"brand,omitempty"`

	Size  string `yaml:"size,omitempty"`
	Color string `yaml:"color,omitempty"`

	ExpiresOn string `yaml:"expires_on,omitempty"`
}

// Customer is one registry entry
type Customer struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads and parses a seed file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return Parse(data)
}

// Parse decodes a seed document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode seed file")
	}
	return &f, nil
}

// Build turns the entry into a catalog product
func (p Product) Build() (*domain.Product, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "product %s: price %q", p.Code, p.Price)
	}

	var details domain.Details
	switch domain.Kind(p.Kind) {
	case domain.KindElectronic:
		details = domain.Electronic{WarrantyMonths: p.WarrantyMonths, Brand: p.Brand}
	case domain.KindApparel:
		details = domain.Apparel{Size: p.Size, Color: p.Color}
	case domain.KindFood:
		expires, err := time.Parse(domain.ExpiryLayout, p.ExpiresOn)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s: expiry %q", p.Code, p.ExpiresOn)
		}
		details = domain.Food{ExpiresOn: expires}
	default:
		return nil, errors.Errorf("product %s: unknown kind %q", p.Code, p.Kind)
	}

	return domain.NewProduct(p.Code, p.Name, price, p.Stock, details)
}

// Apply adds every seeded product and customer to s. It stops at the first
// entry the store rejects.
func (f *File) Apply(s *store.Store) error {
	for _, entry := range f.Products {
		p, err := entry.Build()
		if err != nil {
			return err
		}
		if err := s.AddProduct(p); err != nil {
			return err
		}
	}

	for _, entry := range f.Customers {
		c, err := domain.NewCustomer(entry.ID, entry.Name)
		if err != nil {
			return err
		}
		if err := s.RegisterCustomer(c); err != nil {
			return err
		}
	}
	return nil
}
