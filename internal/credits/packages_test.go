// internal/credits/packages_test.go
package credits

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidatePackages(t *testing.T) {
	valid := Package{ID: "p", Name: "P", Credits: 10, Price: decimal.RequireFromString("1.00"), Currency: "USD"}

	tests := []struct {
		name     string
		packages []Package
		wantErr  string
	}{
		{name: "default catalog", packages: DefaultPackages},
		{name: "single package", packages: []Package{valid}},
		{
			name: "zero price",
			packages: []Package{
				{ID: "free", Name: "Free", Credits: 10, Price: decimal.Zero, Currency: "USD"},
			},
			wantErr: `invalid credit package "free"`,
		},
		{
			name: "no credits",
			packages: []Package{
				{ID: "empty", Name: "Empty", Price: decimal.RequireFromString("1"), Currency: "USD"},
			},
			wantErr: `invalid credit package "empty"`,
		},
		{
			name:     "duplicate id",
			packages: []Package{valid, valid},
			wantErr:  `duplicate credit package "p"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackages(tt.packages)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
