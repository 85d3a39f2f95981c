package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-importer/internal/importer/adapters/memory"
	"github.com/jcmexdev/order-importer/internal/importer/batch"
	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
	"github.com/jcmexdev/order-importer/internal/pkg/auth"
)

var testSecret = []byte("test-secret")

type fakeCache struct {
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.entries[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.entries[key], nil
}

func (f *fakeCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("test:%s:%s", operation, key)
}

type fakeReader struct {
	orders map[string]*domain.Order
}

func (f *fakeReader) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order, nil
}

type testServer struct {
	router http.Handler
	orders *memory.OrderStore
	cache  *fakeCache
	reader *fakeReader
}

func newTestServer() *testServer {
	dir := memory.NewDirectory()
	dir.AddUser(domain.User{ID: "user-1", Email: "customer@example.com"})
	dir.AddChannel(domain.Channel{ID: "channel-1", Slug: "channel-pln", CurrencyCode: "PLN"})
	dir.AddVariant(domain.ProductVariant{ID: "variant-1", SKU: "SKU-1"})
	dir.AddWarehouse(domain.Warehouse{ID: "warehouse-1", Name: "Main Warehouse"})
	dir.AddShippingMethod(domain.ShippingMethod{ID: "method-1", Name: "DHL"})
	dir.AddChannelListing("method-1", "channel-1", decimal.NewFromInt(10))

	orders := memory.NewOrderStore()
	coordinator := batch.New(batch.Config{
		Directories: dir.Directories(),
		Orders:      orders,
		Stock:       memory.NewStockStore(),
	})

	c := newFakeCache()
	reader := &fakeReader{orders: make(map[string]*domain.Order)}
	handler := NewHandler(coordinator, reader, c)
	return &testServer{
		router: NewRouter(handler, testSecret),
		orders: orders,
		cache:  c,
		reader: reader,
	}
}

func signToken(t *testing.T, permissions ...string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "importer-client",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Permissions: permissions,
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func importerToken(t *testing.T) string {
	return signToken(t, auth.PermissionManageOrders, auth.PermissionManageOrdersImport)
}

func bulkRequest() batch.Request {
	yesterday := time.Now().Add(-24 * time.Hour)
	return batch.Request{
		Orders: []domain.OrderInput{{
			Channel:   "channel-pln",
			CreatedAt: yesterday,
			User:      domain.UserRef{Email: "customer@example.com"},
			BillingAddress: &domain.AddressInput{
				StreetAddress1: "Teczowa 7", City: "Wroclaw",
				PostalCode: "53-601", Country: "PL",
			},
			Currency:     "PLN",
			LanguageCode: "pl",
			Lines: []domain.OrderLineInput{{
				VariantSKU: "SKU-1",
				CreatedAt:  yesterday,
				Quantity:   decimal.NewFromInt(2),
				TotalPrice: domain.TaxedMoneyInput{
					Net: decimal.NewFromInt(100), Gross: decimal.NewFromInt(120),
				},
				UndiscountedTotalPrice: domain.TaxedMoneyInput{
					Net: decimal.NewFromInt(100), Gross: decimal.NewFromInt(120),
				},
				WarehouseID: "warehouse-1",
			}},
			DeliveryMethod: domain.DeliveryMethodInput{ShippingMethodID: "method-1"},
		}},
	}
}

func (s *testServer) post(t *testing.T, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, "/orders/bulk", &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestImportOrdersRequiresToken(t *testing.T) {
	s := newTestServer()

	rec := s.post(t, "", bulkRequest(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/orders/bulk", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportOrdersRequiresImportPermission(t *testing.T) {
	s := newTestServer()

	rec := s.post(t, signToken(t, auth.PermissionManageOrders), bulkRequest(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "permission_denied", resp.Error)
}

func TestImportOrdersHappyPath(t *testing.T) {
	s := newTestServer()

	rec := s.post(t, importerToken(t), bulkRequest(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result batch.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Results, 1)
	require.NotNil(t, result.Results[0].Order)
	assert.Empty(t, result.Results[0].Errors)
	assert.Len(t, s.orders.Orders(), 1)
}

func TestImportOrdersRejectsBadPayloads(t *testing.T) {
	s := newTestServer()
	token := importerToken(t)

	rec := s.post(t, token, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, token, batch.Request{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := bulkRequest()
	bad.ErrorPolicy = "CROSS_FINGERS"
	rec = s.post(t, token, bad, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_policy", resp.Error)
}

func TestImportOrdersIdempotentReplay(t *testing.T) {
	s := newTestServer()
	token := importerToken(t)
	headers := map[string]string{"x-idempotency-key": "batch-42"}

	first := s.post(t, token, bulkRequest(), headers)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Len(t, s.orders.Orders(), 1)

	// Same key replays the stored result; the batch does not run again.
	second := s.post(t, token, bulkRequest(), headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, s.orders.Orders(), 1)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// A fresh key runs a fresh batch.
	third := s.post(t, token, bulkRequest(), map[string]string{"x-idempotency-key": "batch-43"})
	require.Equal(t, http.StatusOK, third.Code)
	assert.Len(t, s.orders.Orders(), 2)
}

func TestGetOrderByID(t *testing.T) {
	s := newTestServer()
	s.reader.orders["order-1"] = &domain.Order{ID: "order-1", Currency: "PLN"}
	token := importerToken(t)

	req := httptest.NewRequest(http.MethodGet, "/orders/order-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "order-1", order.ID)

	req = httptest.NewRequest(http.MethodGet, "/orders/non-existing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzIsOpen(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
