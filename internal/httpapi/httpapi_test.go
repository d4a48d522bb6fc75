package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/catalog"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/service/balance"
	"github.com/storeops/finledger/internal/service/inventory"
	"github.com/storeops/finledger/internal/service/journal"
	"github.com/storeops/finledger/internal/service/ledger"
	"github.com/storeops/finledger/internal/service/report"
	"github.com/storeops/finledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type txResp struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Currency   string `json:"currency"`
	TotalMinor int64  `json:"total_minor"`
	ActionedBy string `json:"actioned_by"`
	Entries    []struct {
		LedgerID    string `json:"ledger_id"`
		Side        string `json:"side"`
		AmountMinor int64  `json:"amount_minor"`
	} `json:"entries"`
}

type fixture struct {
	store     *memory.Store
	handler   http.Handler
	cash      finance.Ledger
	sales     finance.Ledger
	inventory finance.Ledger
}

func setup(t *testing.T) fixture {
	return setupWithCatalog(t, catalog.NewStatic(catalog.DevVariants()))
}

func setupWithCatalog(t *testing.T, source catalog.Source) fixture {
	t.Helper()
	store := memory.New()
	assets := finance.AccountGroup{ID: uuid.New(), Name: "Current Assets", Type: finance.GroupTypeAsset, Active: true}
	stock := finance.AccountGroup{ID: uuid.New(), Name: "Stock in Hand", Type: finance.GroupTypeAsset, Active: true}
	income := finance.AccountGroup{ID: uuid.New(), Name: "Sales Revenue", Type: finance.GroupTypeIncome, Active: true}
	store.SeedGroup(assets)
	store.SeedGroup(stock)
	store.SeedGroup(income)
	cash := finance.Ledger{ID: uuid.New(), GroupID: assets.ID, Name: "Cash", Code: "cash", Currency: "INR", Active: true}
	sales := finance.Ledger{ID: uuid.New(), GroupID: income.ID, Name: "Sales", Code: "sales", Currency: "INR", Active: true}
	inv := finance.Ledger{ID: uuid.New(), GroupID: stock.ID, Name: "Inventory", Code: "inventory", Currency: "INR", Active: true}
	store.SeedLedger(cash)
	store.SeedLedger(sales)
	store.SeedLedger(inv)

	log := testLogger()
	chart := ledger.New(store, store, "INR")
	journalSvc := journal.New(store, store, nil, log)
	balances := balance.New(store)
	reports := report.New(store, log)
	stockSvc := inventory.New(source, store, balances, "inventory", time.Second, log)
	h := New(chart, journalSvc, balances, reports, stockSvc, store, store, log).Handler()
	return fixture{store: store, handler: h, cash: cash, sales: sales, inventory: inv}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, rec.Body.String())
	}
	return env
}

func saleBody(fx fixture, minor int64) map[string]any {
	return map[string]any{
		"type":        "sales",
		"status":      "pending",
		"currency":    "INR",
		"description": "cash sale",
		"entries": []map[string]any{
			{"ledger_id": fx.cash.ID.String(), "side": "debit", "amount_minor": minor},
			{"ledger_id": fx.sales.ID.String(), "side": "credit", "amount_minor": minor},
		},
	}
}

func TestPostTransaction_ValidAndUnbalanced(t *testing.T) {
	fx := setup(t)

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 1500), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope: %s", rec.Body.String())
	}
	var tx txResp
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if tx.Status != "pending" || len(tx.Entries) != 2 || tx.TotalMinor != 1500 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	body := saleBody(fx, 1500)
	body["entries"] = []map[string]any{
		{"ledger_id": fx.cash.ID.String(), "side": "debit", "amount_minor": 1500},
		{"ledger_id": fx.sales.ID.String(), "side": "credit", "amount_minor": 1400},
	}
	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env = decodeEnvelope(t, rec)
	if env.Success || env.Code != "unbalanced_transaction" {
		t.Fatalf("unexpected error envelope: %s", rec.Body.String())
	}
}

func TestApprove_ThenTerminalConflict(t *testing.T) {
	fx := setup(t)

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 2000), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
	}
	var tx txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tx)

	hdr := map[string]string{"X-Actor": "finance-admin"}
	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/approve", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d: %s", rec.Code, rec.Body.String())
	}
	var approved txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &approved)
	if approved.Status != "approved" || approved.ActionedBy != "finance-admin" {
		t.Fatalf("unexpected approved tx: %+v", approved)
	}

	// Second approval must 409, not double post.
	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/approve", nil, hdr)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); env.Code != "already_terminal" {
		t.Fatalf("unexpected code: %s", rec.Body.String())
	}

	// Reject after approve is equally terminal.
	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/reject", nil, hdr)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reject, got %d", rec.Code)
	}
}

func TestReject_RecordsActioningActor(t *testing.T) {
	fx := setup(t)
	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 800), nil)
	var tx txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tx)

	hdr := map[string]string{"X-Actor": "auditor"}
	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/reject", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d: %s", rec.Code, rec.Body.String())
	}
	var rejected txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &rejected)
	if rejected.Status != "rejected" || rejected.ActionedBy != "auditor" {
		t.Fatalf("unexpected rejected tx: %+v", rejected)
	}
	// The wire shape is action-neutral: no approval claimed on a rejection.
	if bytes.Contains(rec.Body.Bytes(), []byte("approved_by")) {
		t.Fatalf("rejection payload claims an approval: %s", rec.Body.String())
	}
}

func TestApprove_RequiresActor(t *testing.T) {
	fx := setup(t)
	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 100), nil)
	var tx txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tx)

	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/approve", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without actor, got %d", rec.Code)
	}
}

func TestBalance_OnlyApprovedCounts(t *testing.T) {
	fx := setup(t)

	body := saleBody(fx, 5000)
	body["status"] = "draft"
	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
	}
	var tx txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tx)

	balPath := "/finance/ledgers/" + fx.cash.ID.String() + "/balance"
	rec = doJSON(t, fx.handler, http.MethodGet, balPath, nil, nil)
	var bal struct {
		BalanceMinor int64 `json:"balance_minor"`
	}
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &bal)
	if bal.BalanceMinor != 0 {
		t.Fatalf("draft must not affect balance, got %d", bal.BalanceMinor)
	}

	hdr := map[string]string{"X-Actor": "finance-admin"}
	rec = doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/approve", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, fx.handler, http.MethodGet, balPath, nil, nil)
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &bal)
	if bal.BalanceMinor != 5000 {
		t.Fatalf("expected 5000 after approval, got %d", bal.BalanceMinor)
	}
}

func TestPostTransaction_IdempotencyKeyReplay(t *testing.T) {
	fx := setup(t)
	hdr := map[string]string{"Idempotency-Key": "order-42"}

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 900), hdr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: %d: %s", rec.Code, rec.Body.String())
	}
	var first txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &first)

	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 900), hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay should be 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var second txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &second)
	if first.ID != second.ID {
		t.Fatalf("replay returned different transaction: %s vs %s", first.ID, second.ID)
	}
}

func TestPostTransaction_IdempotencyKeyBodyMismatch(t *testing.T) {
	fx := setup(t)
	hdr := map[string]string{"Idempotency-Key": "order-7"}

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 1000), hdr)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: %d: %s", rec.Code, rec.Body.String())
	}

	// Same key, different amount: must conflict, not replay the original.
	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 999999), hdr)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Code != "idempotency_mismatch" {
		t.Fatalf("unexpected envelope: %s", rec.Body.String())
	}

	// The original body still replays.
	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 1000), hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay after mismatch: %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTrialBalance_Endpoint(t *testing.T) {
	fx := setup(t)
	hdr := map[string]string{"X-Actor": "finance-admin"}

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, 2500), nil)
	var tx txResp
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tx)
	doJSON(t, fx.handler, http.MethodPatch, "/finance/transactions/"+tx.ID+"/approve", nil, hdr)

	rec = doJSON(t, fx.handler, http.MethodGet, "/finance/trial-balance", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trial balance: %d: %s", rec.Code, rec.Body.String())
	}
	var tb struct {
		TotalDebitMinor  int64 `json:"total_debit_minor"`
		TotalCreditMinor int64 `json:"total_credit_minor"`
		IsBalanced       bool  `json:"is_balanced"`
	}
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &tb)
	if !tb.IsBalanced || tb.TotalDebitMinor != 2500 || tb.TotalCreditMinor != 2500 {
		t.Fatalf("unexpected trial balance: %+v", tb)
	}
}

func TestLedgers_CreateListAndGroupConflicts(t *testing.T) {
	fx := setup(t)

	rec := doJSON(t, fx.handler, http.MethodPost, "/finance/account-groups", map[string]any{
		"name": "Fixed Assets", "type": "asset",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate normalized name for the same type conflicts.
	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/account-groups", map[string]any{
		"name": "fixed assets", "type": "asset",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	// Invalid type is rejected before the service runs.
	rec = doJSON(t, fx.handler, http.MethodPost, "/finance/account-groups", map[string]any{
		"name": "Weird", "type": "revenue",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, fx.handler, http.MethodGet, "/finance/ledgers?type=income", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list ledgers: %d", rec.Code)
	}
	var ledgers []struct {
		Code         string `json:"code"`
		BalanceMinor *int64 `json:"balance_minor"`
	}
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &ledgers)
	if len(ledgers) != 1 || ledgers[0].Code != "sales" {
		t.Fatalf("unexpected income ledgers: %+v", ledgers)
	}
	if ledgers[0].BalanceMinor == nil {
		t.Fatalf("expected derived balance on listing")
	}
}

func TestInventoryValuation_OKAndUpstreamFailure(t *testing.T) {
	fx := setup(t)

	rec := doJSON(t, fx.handler, http.MethodGet, "/finance/inventory-assets/realtime-calculation", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("valuation: %d: %s", rec.Code, rec.Body.String())
	}
	var snap struct {
		TotalInventoryValueMinor int64 `json:"total_inventory_value_minor"`
		VarianceMinor            int64 `json:"variance_minor"`
		TotalItems               int   `json:"total_items"`
	}
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &snap)
	if snap.TotalItems == 0 || snap.TotalInventoryValueMinor == 0 {
		t.Fatalf("expected non-empty snapshot: %+v", snap)
	}
	// Inventory ledger is empty, so variance equals the full stock value.
	if snap.VarianceMinor != snap.TotalInventoryValueMinor {
		t.Fatalf("variance %d != value %d", snap.VarianceMinor, snap.TotalInventoryValueMinor)
	}

	failing := setupWithCatalog(t, catalog.NewFailing(errors.New("catalog down")))
	rec = doJSON(t, failing.handler, http.MethodGet, "/finance/inventory-assets/realtime-calculation", nil, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Code != "upstream_error" {
		t.Fatalf("unexpected envelope: %s", rec.Body.String())
	}
}

func TestListTransactions_CursorPagination(t *testing.T) {
	fx := setup(t)
	for i := 0; i < 5; i++ {
		rec := doJSON(t, fx.handler, http.MethodPost, "/finance/transactions", saleBody(fx, int64(100*(i+1))), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: %d", i, rec.Code)
		}
	}
	rec := doJSON(t, fx.handler, http.MethodGet, "/finance/transactions?limit=2", nil, nil)
	var page struct {
		Items      []txResp `json:"items"`
		NextCursor *string  `json:"next_cursor"`
	}
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &page)
	if len(page.Items) != 2 || page.NextCursor == nil {
		t.Fatalf("unexpected first page: %+v", page)
	}
	seen := map[string]bool{page.Items[0].ID: true, page.Items[1].ID: true}

	rec = doJSON(t, fx.handler, http.MethodGet, "/finance/transactions?limit=4&cursor="+*page.NextCursor, nil, nil)
	page.Items = nil
	page.NextCursor = nil
	_ = json.Unmarshal(decodeEnvelope(t, rec).Data, &page)
	if len(page.Items) != 3 {
		t.Fatalf("expected remaining 3, got %d", len(page.Items))
	}
	for _, it := range page.Items {
		if seen[it.ID] {
			t.Fatalf("transaction %s repeated across pages", it.ID)
		}
	}
	if page.NextCursor != nil {
		t.Fatalf("expected final page")
	}
}
