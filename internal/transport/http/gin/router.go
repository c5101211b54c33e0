package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/communahq/communa/internal/domain"
	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/pricing"
	redisrepo "github.com/communahq/communa/internal/repository/redis"
	"github.com/communahq/communa/internal/service"
	"github.com/communahq/communa/internal/service/admin"
	"github.com/communahq/communa/internal/service/catalog"
	"github.com/communahq/communa/internal/service/checkout"
	"github.com/communahq/communa/internal/service/refunds"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/events/:id/tiers", handleListTiers(svcs))

	r.POST("/carts/quote", handleQuote(svcs))

	r.POST("/orders", handleCreateOrder(svcs, idem))
	r.GET("/orders/:id", handleGetOrder(svcs))
	r.GET("/orders/:id/refunds", handleListRefunds(svcs))
	r.POST("/orders/:id/refunds", handleIssueRefund(svcs))
	r.POST("/orders/:id/modifications", handleModifyOrder(svcs))

	// Admin-API
	// TODO: add admin middleware
	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/events", handleCreateEvent(svcs))
		adminGroup.POST("/events/:id/tiers", handleCreateTier(svcs))
		adminGroup.POST("/events/:id/discount-codes", handleCreateDiscount(svcs))
		adminGroup.POST("/tiers/:id/group-rules", handleAddGroupRule(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  EventResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Catalog.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, toEventResponse(e), "public, max-age=60", true)
	}
}

// @Summary  List ticket tiers with group pricing rules
// @Param    id              path   int   true  "Event ID"
// @Param    include_hidden  query  bool  false "organizer view"
// @Success  200  {array}   TierResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/tiers [get]
func handleListTiers(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		includeHidden := c.Query("include_hidden") == "true"

		tiers, err := svcs.Catalog.ListTiers(c.Request.Context(), eventID, includeHidden)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]TierResponse, 0, len(tiers))
		for i := range tiers {
			resp = append(resp, toTierResponse(&tiers[i]))
		}

		if includeHidden {
			c.JSON(http.StatusOK, resp)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=15", true)
	}
}

// @Summary  Quote a cart without purchasing
// @Param    req body  QuoteRequest true "payload"
// @Success  200 {object} QuoteResponse
// @Failure  400 {object} ErrorResponse
// @Failure  422 {object} ErrorResponse "rejected selection or code"
// @Router   /carts/quote [post]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sel, err := toCartSelection(req.Items)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		breakdown, err := svcs.Checkout.Quote(c.Request.Context(), req.EventID, sel, req.Code)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := QuoteResponse{CartBreakdown: breakdown}
		if breakdown.Discount != nil {
			resp.AppliedCode = breakdown.Discount.Code
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Create order (idempotent)
// @Param    req body  CreateOrderRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} OrderResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "sold out / code exhausted / idem in progress"
// @Failure  422 {object} ErrorResponse "rejected selection or code"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /orders [post]
func handleCreateOrder(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sel, err := toCartSelection(req.Items)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemOrder(req.EventID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		order, err := svcs.Checkout.Checkout(
			c.Request.Context(),
			req.UserID,
			req.EventID,
			sel,
			req.Code,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toOrderResponse(order)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get order with pricing breakdown
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderResponse
// @Failure  404 {object} ErrorResponse
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Refunds.GetOrder(c.Request.Context(), orderID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(o))
	}
}

// @Summary  List refunds for an order
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {array} RefundResponse
// @Failure  404 {object} ErrorResponse
// @Router   /orders/{id}/refunds [get]
func handleListRefunds(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		list, err := svcs.Refunds.ListRefunds(c.Request.Context(), orderID)
		if err != nil {
			respondErr(c, err)
			return
		}
		resp := make([]RefundResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toRefundResponse(&list[i]))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Issue a refund (full when amount_minor omitted)
// @Param    id   path  string        true  "Order ID (uuid)"
// @Param    req  body  RefundRequest true  "payload"
// @Success  201 {object} RefundResponse
// @Failure  404 {object} ErrorResponse
// @Failure  422 {object} ErrorResponse "exceeds remaining refundable amount"
// @Router   /orders/{id}/refunds [post]
func handleIssueRefund(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ref, err := svcs.Refunds.IssueRefund(c.Request.Context(), orderID, req.AmountMinor, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toRefundResponse(ref))
	}
}

// @Summary  Move an order's tickets to another tier
// @Param    id   path  string             true  "Order ID (uuid)"
// @Param    req  body  ModifyOrderRequest true  "payload"
// @Success  201 {object} ModificationResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "target tier sold out"
// @Router   /orders/{id}/modifications [post]
func handleModifyOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req ModifyOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		mod, breakdown, err := svcs.Refunds.Modify(c.Request.Context(), orderID, req.NewTierID)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := ModificationResponse{
			ID:              mod.ID.String(),
			OrderID:         mod.OrderID.String(),
			Type:            mod.Type,
			OldTierID:       mod.OldTierID,
			NewTierID:       mod.NewTierID,
			Quantity:        mod.Quantity,
			PriceDifference: mod.PriceDifference,
			UpgradeCharge:   breakdown.UpgradeCharge,
			RefundDue:       money.Zero(mod.PriceDifference.Currency),
		}
		if mod.Type == domain.ModificationDowngrade {
			resp.RefundDue = mod.PriceDifference.Abs()
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} CreateEventResponse
// @Router   /admin/events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		ends, err := parseRFC3339(req.EndsAt)
		if err != nil {
			badRequest(c, "invalid ends_at (RFC3339)")
			return
		}
		id, err := svcs.Admin.CreateEvent(c.Request.Context(), &domain.Event{
			Title:    req.Title,
			Currency: money.Code(strings.ToUpper(req.Currency)),
			Starts:   starts,
			Ends:     ends,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateEventResponse{EventID: id})
	}
}

// @Summary  Create ticket tier
// @Param    id   path  int               true  "Event ID"
// @Param    req  body  CreateTierRequest true  "payload"
// @Success  201 {object} CreateTierResponse
// @Router   /admin/events/{id}/tiers [post]
func handleCreateTier(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateTierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tier := &domain.TicketTier{
			EventID: eventID,
			Name:    req.Name,
			Price: money.Amount{
				MinorUnits: req.PriceMinor,
				Currency:   money.Code(strings.ToUpper(req.Currency)),
			},
			QuantityAvailable: req.QuantityAvailable,
			MinPerOrder:       req.MinPerOrder,
			MaxPerOrder:       req.MaxPerOrder,
			Hidden:            req.Hidden,
		}

		if req.SalesStart != nil {
			t, err := parseRFC3339(*req.SalesStart)
			if err != nil {
				badRequest(c, "invalid sales_start (RFC3339)")
				return
			}
			tier.SalesStart = &t
		}
		if req.SalesEnd != nil {
			t, err := parseRFC3339(*req.SalesEnd)
			if err != nil {
				badRequest(c, "invalid sales_end (RFC3339)")
				return
			}
			tier.SalesEnd = &t
		}

		id, err := svcs.Admin.CreateTier(c.Request.Context(), tier)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateTierResponse{TierID: id})
	}
}

// @Summary  Attach a group pricing rule to a tier
// @Param    id   path  int                 true  "Tier ID"
// @Param    req  body  AddGroupRuleRequest true  "payload"
// @Success  201 {object} AddGroupRuleResponse
// @Router   /admin/tiers/{id}/group-rules [post]
func handleAddGroupRule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AddGroupRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.AddGroupRule(c.Request.Context(), &domain.GroupPricingRule{
			TierID:          tierID,
			MinQuantity:     req.MinQuantity,
			DiscountPercent: req.DiscountPercent,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, AddGroupRuleResponse{RuleID: id})
	}
}

// @Summary  Create discount code
// @Param    id   path  int                   true  "Event ID"
// @Param    req  body  CreateDiscountRequest true  "payload"
// @Success  201 {object} CreateDiscountResponse
// @Router   /admin/events/{id}/discount-codes [post]
func handleCreateDiscount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		validFrom, err := parseRFC3339(req.ValidFrom)
		if err != nil {
			badRequest(c, "invalid valid_from (RFC3339)")
			return
		}

		code := &domain.DiscountCode{
			EventID:           eventID,
			Code:              req.Code,
			Type:              domain.DiscountType(req.Type),
			Value:             req.Value,
			UsageLimit:        req.UsageLimit,
			ValidFrom:         validFrom,
			MinimumPurchase:   req.MinimumPurchase,
			ApplicableTierIDs: req.ApplicableTierIDs,
		}

		if req.ValidUntil != nil {
			t, err := parseRFC3339(*req.ValidUntil)
			if err != nil {
				badRequest(c, "invalid valid_until (RFC3339)")
				return
			}
			code.ValidUntil = &t
		}

		id, err := svcs.Admin.CreateDiscountCode(c.Request.Context(), code)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateDiscountResponse{CodeID: id})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name+" (uuid)")
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unprocessable(c *gin.Context, msg, reason string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: msg, Reason: reason})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// not found
	case errors.Is(err, catalog.ErrEventNotFound),
		errors.Is(err, checkout.ErrEventNotFound),
		errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, refunds.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	case errors.Is(err, pricing.ErrTierNotFound),
		errors.Is(err, admin.ErrTierNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "tier not found"})

	// contention on shared counters
	case errors.Is(err, pricing.ErrTierSoldOut):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "tier sold out", Reason: "tier_sold_out"})
	case errors.Is(err, pricing.ErrDiscountExhausted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount code exhausted", Reason: "code_exhausted"})
	case errors.Is(err, admin.ErrCodeExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "discount code already exists"})
	case errors.Is(err, admin.ErrRuleExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "group rule already exists"})

	// rejected selection
	case errors.Is(err, pricing.ErrEmptyCart):
		unprocessable(c, "empty cart", "empty_cart")
	case errors.Is(err, pricing.ErrTierNotOnSale):
		unprocessable(c, "tier not on sale", "tier_not_on_sale")
	case errors.Is(err, pricing.ErrQuantityOutOfBounds):
		unprocessable(c, "quantity outside per-order bounds", "quantity_out_of_bounds")

	// rejected discount code
	case errors.Is(err, pricing.ErrDiscountNotFound):
		unprocessable(c, "unknown discount code", "code_not_found")
	case errors.Is(err, pricing.ErrDiscountNotYetActive):
		unprocessable(c, "discount code not yet active", "code_not_yet_active")
	case errors.Is(err, pricing.ErrDiscountExpired):
		unprocessable(c, "discount code expired", "code_expired")
	case errors.Is(err, pricing.ErrDiscountNotApplicable):
		unprocessable(c, "discount code not applicable to selected tiers", "code_not_applicable")
	case errors.Is(err, pricing.ErrDiscountMinimumNotMet):
		unprocessable(c, "minimum purchase not met", "minimum_not_met")

	// refunds and modifications
	case errors.Is(err, pricing.ErrRefundExceedsRemaining):
		unprocessable(c, "refund exceeds remaining refundable amount", "refund_exceeds_remaining")
	case errors.Is(err, refunds.ErrMultiTierOrder):
		unprocessable(c, "order spans multiple tiers", "multi_tier_order")
	case errors.Is(err, refunds.ErrSameTier):
		unprocessable(c, "target tier equals current tier", "same_tier")

	// money
	case errors.Is(err, money.ErrCurrencyMismatch):
		badRequest(c, "currency mismatch")
	case errors.Is(err, money.ErrUnknownCurrency):
		badRequest(c, "unsupported currency")
	case errors.Is(err, money.ErrInvalidAmount):
		badRequest(c, "invalid amount")
	case errors.Is(err, admin.ErrInvalidInput),
		errors.Is(err, admin.ErrCurrencyMixing):
		badRequest(c, err.Error())

	case errors.Is(err, checkout.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
