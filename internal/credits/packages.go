// internal/credits/packages.go
package credits

import (
	"fmt"

	"github.com/shopspring/decimal"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

// Package is a purchasable bundle of credits. Checkout itself happens in
// the billing provider; the catalog only lists what can be bought.
type Package struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Credits  int64           `json:"credits" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"required,dgt=0"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Popular  bool            `json:"popular,omitempty"`
}

var DefaultPackages = []Package{
	{ID: "starter", Name: "Starter", Credits: 500, Price: decimal.RequireFromString("9.99"), Currency: "USD"},
	{ID: "growth", Name: "Growth", Credits: 2000, Price: decimal.RequireFromString("29.99"), Currency: "USD", Popular: true},
	{ID: "agency", Name: "Agency", Credits: 10000, Price: decimal.RequireFromString("99.99"), Currency: "USD"},
}

// ValidatePackages checks every package and rejects duplicate ids.
func ValidatePackages(packages []Package) error {
	validate := cV.GetValidator()
	seen := make(map[string]struct{}, len(packages))

	for _, p := range packages {
		if err := validate.Struct(p); err != nil {
			return fmt.Errorf("invalid credit package %q: %w", p.ID, err)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate credit package %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
