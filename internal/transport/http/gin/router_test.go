package httpgin

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/communahq/communa/internal/money"
	"github.com/communahq/communa/internal/pricing"
	"github.com/communahq/communa/internal/service/admin"
	"github.com/communahq/communa/internal/service/catalog"
	"github.com/communahq/communa/internal/service/checkout"
	"github.com/communahq/communa/internal/service/refunds"
)

func respondStatus(t *testing.T, err error) int {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondErr(c, err)

	return w.Code
}

func TestRespondErrStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"event not found", catalog.ErrEventNotFound, http.StatusNotFound},
		{"order not found", refunds.ErrOrderNotFound, http.StatusNotFound},
		{"tier not found", pricing.ErrTierNotFound, http.StatusNotFound},
		{"admin tier not found", admin.ErrTierNotFound, http.StatusNotFound},
		{"sold out", pricing.ErrTierSoldOut, http.StatusConflict},
		{"code exhausted", pricing.ErrDiscountExhausted, http.StatusConflict},
		{"code exists", admin.ErrCodeExists, http.StatusConflict},
		{"empty cart", pricing.ErrEmptyCart, http.StatusUnprocessableEntity},
		{"not on sale", pricing.ErrTierNotOnSale, http.StatusUnprocessableEntity},
		{"quantity", pricing.ErrQuantityOutOfBounds, http.StatusUnprocessableEntity},
		{"code unknown", pricing.ErrDiscountNotFound, http.StatusUnprocessableEntity},
		{"code not yet active", pricing.ErrDiscountNotYetActive, http.StatusUnprocessableEntity},
		{"code expired", pricing.ErrDiscountExpired, http.StatusUnprocessableEntity},
		{"code not applicable", pricing.ErrDiscountNotApplicable, http.StatusUnprocessableEntity},
		{"minimum not met", pricing.ErrDiscountMinimumNotMet, http.StatusUnprocessableEntity},
		{"over-refund", pricing.ErrRefundExceedsRemaining, http.StatusUnprocessableEntity},
		{"multi tier order", refunds.ErrMultiTierOrder, http.StatusUnprocessableEntity},
		{"same tier", refunds.ErrSameTier, http.StatusUnprocessableEntity},
		{"currency mismatch", money.ErrCurrencyMismatch, http.StatusBadRequest},
		{"unknown currency", money.ErrUnknownCurrency, http.StatusBadRequest},
		{"rate limited", checkout.ErrRateLimited, http.StatusTooManyRequests},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, respondStatus(t, tc.err))
		})
	}
}

func TestRespondErrSeesWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("service.checkout.Checkout"), pricing.ErrTierSoldOut)
	assert.Equal(t, http.StatusConflict, respondStatus(t, wrapped))
}

func TestToCartSelection(t *testing.T) {
	sel, err := toCartSelection([]CartItemInput{
		{TierID: 1, Quantity: 2},
		{TierID: 7, Quantity: 1},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), sel[1])
	assert.Equal(t, int64(1), sel[7])

	_, err = toCartSelection([]CartItemInput{
		{TierID: 1, Quantity: 2},
		{TierID: 1, Quantity: 3},
	})
	assert.ErrorIs(t, err, errDuplicateTier)
}
