// internal/metering/types.go
package metering

import (
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/relay"
)

const (
	ActionAIQuery        = "ai.query"
	ActionProductCreate  = "printify.products.create"
	ActionProductPublish = "printify.products.publish"

	UnavailableMessage = relay.UnavailableMessage
)

// Action is a paid operation: what it costs, how the debit is labelled and
// which remote workflow performs it.
type Action struct {
	Name   string
	Cost   int64
	Reason string
}

// Catalog holds the metered actions exposed over HTTP.
type Catalog struct {
	AIQuery        Action
	ProductCreate  Action
	ProductPublish Action
}

func NewCatalog(aiQueryCost, productCreateCost, listingPublishCost int64) Catalog {
	return Catalog{
		AIQuery:        Action{Name: ActionAIQuery, Cost: aiQueryCost, Reason: "AI Assistant Query"},
		ProductCreate:  Action{Name: ActionProductCreate, Cost: productCreateCost, Reason: "Product Creation"},
		ProductPublish: Action{Name: ActionProductPublish, Cost: listingPublishCost, Reason: "Listing Publish"},
	}
}

type Status int

const (
	StatusCompleted Status = iota
	StatusRejected
	StatusRelayFailed
)

// Outcome of one metered call. Rejection is set only for StatusRejected.
// Error holds the relay failure for logs and is never sent to clients.
type Outcome struct {
	Status      Status
	Rejection   *credits.UseResult
	Transaction *credits.Transaction
	Result      any
	NewBalance  int64
	Refunded    bool
	Error       string
}

// Request types

type AIQueryRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Prompt string `json:"prompt" validate:"required,max=8000"`
	Model  string `json:"model,omitempty" validate:"max=64"`
}

type ProductVariant struct {
	ID        int  `json:"id" validate:"gt=0"`
	Price     int  `json:"price" validate:"gt=0"`
	IsEnabled bool `json:"is_enabled"`
}

type CreateProductRequest struct {
	UserID          string           `json:"userId" validate:"required,max=128"`
	ShopID          string           `json:"shopId" validate:"required"`
	Title           string           `json:"title" validate:"required,max=255"`
	Description     string           `json:"description,omitempty"`
	BlueprintID     int              `json:"blueprintId" validate:"gt=0"`
	PrintProviderID int              `json:"printProviderId" validate:"gt=0"`
	Variants        []ProductVariant `json:"variants,omitempty" validate:"dive"`
}

type PublishProductRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	ShopID string `json:"shopId" validate:"required"`
}

// Response types

type CompletedResponse struct {
	Success     bool                 `json:"success"`
	Result      any                  `json:"result"`
	NewBalance  int64                `json:"newBalance"`
	Transaction *credits.Transaction `json:"transaction"`
}

type FailedResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	NewBalance int64  `json:"newBalance"`
	Refunded   bool   `json:"refunded"`
}
