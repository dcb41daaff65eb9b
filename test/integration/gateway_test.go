//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// gatewayAPIKey is the only key the fake Gateway accepts. Any other key,
// well formed or not, earns a 401.
const gatewayAPIKey = "sk-test-integration-0123456789abcdef"

// fakeGateway is an in-memory stand-in for the Gate API, serving full order
// and product lifecycles over real HTTP. Switches make it misbehave on
// demand: force an error status on every request, or kill connections at the
// transport level before a response is written.
type fakeGateway struct {
	server *httptest.Server

	mu          sync.Mutex
	orders      map[string]map[string]any
	orderSeq    []string
	products    map[string]map[string]any
	productSeq  []string
	requests    int
	failStatus  int
	failMessage string
	dropConns   int
}

// startFakeGateway brings up the fake on a local listener. Callers own the
// returned gateway and should Close it when done.
func startFakeGateway() *fakeGateway {
	g := &fakeGateway{
		orders:   make(map[string]map[string]any),
		products: make(map[string]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status/{$}", g.auth(g.handleStatus))

	mux.HandleFunc("POST /orders/{$}", g.auth(g.handleCreateOrder))
	mux.HandleFunc("GET /orders/{$}", g.auth(g.handleListOrders))
	mux.HandleFunc("GET /orders/{id}/{$}", g.auth(g.handleGetOrder))
	mux.HandleFunc("PATCH /orders/{id}/{$}", g.auth(g.handleUpdateOrder))
	mux.HandleFunc("DELETE /orders/{id}/{$}", g.auth(g.handleDeleteOrder))
	mux.HandleFunc("POST /orders/{id}/capture/{$}", g.auth(g.handleCaptureOrder))
	mux.HandleFunc("POST /orders/{id}/refund/{$}", g.auth(g.handleRefundOrder))
	mux.HandleFunc("POST /orders/{id}/cancel/{$}", g.auth(g.handleCancelOrder))

	mux.HandleFunc("POST /products/{$}", g.auth(g.handleCreateProduct))
	mux.HandleFunc("GET /products/{$}", g.auth(g.handleListProducts))
	mux.HandleFunc("GET /products/{id}/{$}", g.auth(g.handleGetProduct))
	mux.HandleFunc("PATCH /products/{id}/{$}", g.auth(g.handleUpdateProduct))
	mux.HandleFunc("DELETE /products/{id}/{$}", g.auth(g.handleDeleteProduct))

	g.server = httptest.NewServer(g.intercept(mux))

	return g
}

// URL returns the base URL clients should point at.
func (g *fakeGateway) URL() string {
	return g.server.URL
}

// Close shuts the fake down.
func (g *fakeGateway) Close() {
	g.server.Close()
}

// reset clears stores, counters and failure modes between scenarios. The
// listener keeps running.
func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.orders = make(map[string]map[string]any)
	g.orderSeq = nil
	g.products = make(map[string]map[string]any)
	g.productSeq = nil
	g.requests = 0
	g.failStatus = 0
	g.failMessage = ""
	g.dropConns = 0
}

// failWith forces every subsequent request to fail with status until reset.
func (g *fakeGateway) failWith(status int, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failStatus = status
	g.failMessage = message
}

// dropNextConns makes the fake kill the next n connections without writing a
// response, so clients see a transport failure instead of an HTTP error.
func (g *fakeGateway) dropNextConns(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dropConns = n
}

// requestCount reports how many requests reached the fake, dropped
// connections included.
func (g *fakeGateway) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.requests
}

// orderStatus reads an order's status directly from the store.
func (g *fakeGateway) orderStatus(id string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[id]
	if !ok {
		return ""
	}

	status, _ := order["status"].(string)

	return status
}

// intercept applies the failure switches before normal routing.
func (g *fakeGateway) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests++

		if g.dropConns > 0 {
			g.dropConns--
			g.mu.Unlock()

			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					conn.Close()
				}
			}

			return
		}

		status, message := g.failStatus, g.failMessage
		g.mu.Unlock()

		if status != 0 {
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "30")
				w.Header().Set("X-RateLimit-Limit", "100")
				w.Header().Set("X-RateLimit-Remaining", "0")
			}
			writeError(w, status, message)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// auth enforces the bearer credential on every API route.
func (g *fakeGateway) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+gatewayAPIKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next(w, r)
	}
}

func (g *fakeGateway) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "operational"})
}

func (g *fakeGateway) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if body == nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	amount := amountOf(body["amount"])
	if !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	currency, _ := body["currency"].(string)
	if len(currency) != 3 {
		writeError(w, http.StatusBadRequest, "currency must be a three-letter code")
		return
	}

	id := uuid.NewString()
	order := map[string]any{
		"id":         id,
		"status":     "issued",
		"amount":     amount.String(),
		"currency":   currency,
		"api_do_url": g.server.URL + "/do/" + id,
		"available_payment_methods": []any{
			map[string]any{"name": "card", "url": g.server.URL + "/do/" + id + "/card"},
		},
	}

	for _, key := range []string{"number", "description", "language", "skip_capture", "client", "products"} {
		if v, ok := body[key]; ok {
			order[key] = v
		}
	}

	g.mu.Lock()
	g.orders[id] = order
	g.orderSeq = append(g.orderSeq, id)
	g.mu.Unlock()

	writeJSON(w, http.StatusCreated, order)
}

func (g *fakeGateway) handleListOrders(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	writeJSON(w, http.StatusOK, g.page(r, "/orders/", g.orderSeq, g.orders))
}

func (g *fakeGateway) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	fields := decodeBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	for key, value := range fields {
		if key != "id" && key != "status" {
			order[key] = value
		}
	}

	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := r.PathValue("id")

	order, ok := g.orders[id]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if order["status"] != "issued" {
		writeError(w, http.StatusBadRequest, "only issued orders can be deleted")
		return
	}

	delete(g.orders, id)
	for i, seqID := range g.orderSeq {
		if seqID == id {
			g.orderSeq = append(g.orderSeq[:i], g.orderSeq[i+1:]...)
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{})
}

func (g *fakeGateway) handleCaptureOrder(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if order["status"] != "issued" {
		writeError(w, http.StatusBadRequest, "only issued orders can be captured")
		return
	}

	order["status"] = "paid"

	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if order["status"] != "paid" {
		writeError(w, http.StatusBadRequest, "only paid orders can be refunded")
		return
	}

	// No body means refund the full amount.
	amount := amountOf(order["amount"])
	if v, ok := body["amount"]; ok {
		amount = amountOf(v)
	}

	if amount.GreaterThan(amountOf(order["amount"])) {
		writeError(w, http.StatusBadRequest, "refund exceeds order amount")
		return
	}

	order["status"] = "refunded"
	order["refunded_amount"] = amount.String()

	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if order["status"] != "issued" {
		writeError(w, http.StatusBadRequest, "only issued orders can be canceled")
		return
	}

	order["status"] = "canceled"

	writeJSON(w, http.StatusOK, order)
}

func (g *fakeGateway) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if body == nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	title, _ := body["title"].(string)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	price := amountOf(body["price"])
	if !price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	id := uuid.NewString()
	product := map[string]any{
		"id":    id,
		"title": title,
		"price": price.String(),
	}

	for _, key := range []string{"currency", "quantity", "description"} {
		if v, ok := body[key]; ok {
			product[key] = v
		}
	}

	g.mu.Lock()
	g.products[id] = product
	g.productSeq = append(g.productSeq, id)
	g.mu.Unlock()

	writeJSON(w, http.StatusCreated, product)
}

func (g *fakeGateway) handleListProducts(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	writeJSON(w, http.StatusOK, g.page(r, "/products/", g.productSeq, g.products))
}

func (g *fakeGateway) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	product, ok := g.products[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (g *fakeGateway) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	fields := decodeBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	product, ok := g.products[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	for key, value := range fields {
		if key != "id" {
			product[key] = value
		}
	}

	writeJSON(w, http.StatusOK, product)
}

func (g *fakeGateway) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := r.PathValue("id")

	if _, ok := g.products[id]; !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	delete(g.products, id)
	for i, seqID := range g.productSeq {
		if seqID == id {
			g.productSeq = append(g.productSeq[:i], g.productSeq[i+1:]...)
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{})
}

// page assembles the paginated list envelope from the insertion-ordered id
// sequence. page and page_size come from the query; next and previous links
// are set only when the neighbouring page exists.
func (g *fakeGateway) page(r *http.Request, path string, seq []string, store map[string]map[string]any) map[string]any {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 {
		size = 25
	}

	start := min((page-1)*size, len(seq))
	end := min(start+size, len(seq))

	results := make([]any, 0, end-start)
	for _, id := range seq[start:end] {
		results = append(results, store[id])
	}

	envelope := map[string]any{
		"count":    len(seq),
		"results":  results,
		"next":     nil,
		"previous": nil,
	}

	if end < len(seq) {
		envelope["next"] = g.pageURL(path, page+1, size)
	}
	if page > 1 {
		envelope["previous"] = g.pageURL(path, page-1, size)
	}

	return envelope
}

func (g *fakeGateway) pageURL(path string, page, size int) string {
	return g.server.URL + path + "?page=" + strconv.Itoa(page) + "&page_size=" + strconv.Itoa(size)
}

// decodeBody reads the request body as a JSON object. Empty or undecodable
// bodies return nil; handlers decide whether that is acceptable.
func decodeBody(r *http.Request) map[string]any {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil
	}

	return body
}

// amountOf parses a money value from a decoded JSON field. The SDK sends
// decimals as strings; raw callers may send numbers.
func amountOf(v any) decimal.Decimal {
	switch a := v.(type) {
	case string:
		d, err := decimal.NewFromString(a)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(a)
	default:
		return decimal.Zero
	}
}

func writeJSON(w http.ResponseWriter, status int, doc any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}
