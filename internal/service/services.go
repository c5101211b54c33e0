package service

import (
	"github.com/communahq/communa/internal/service/admin"
	"github.com/communahq/communa/internal/service/catalog"
	"github.com/communahq/communa/internal/service/checkout"
	"github.com/communahq/communa/internal/service/refunds"
)

// Services bundles the application services for transport wiring.
type Services struct {
	Catalog  *catalog.Service
	Checkout *checkout.Service
	Refunds  *refunds.Service
	Admin    *admin.Service
}
