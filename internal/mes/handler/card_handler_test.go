package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func TestIssueCardHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-h-001", "PP-H-001")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards",
		map[string]interface{}{
			"plan_id":               "plan-h-001",
			"order_id":              "order-h-001",
			"initial_department_id": "dept-weaving",
			"color":                 "navy",
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != "created" {
		t.Errorf("Expected status created, got %v", data["status"])
	}
	cardID := data["id"].(string)
	barcode := data["barcode"].(string)

	// 详情
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/cards/"+cardID, nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	// 扫码查卡
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/cards/barcode/"+barcode, nil, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	resp3 := testutil.ParseResponse(w3)
	data3 := resp3["data"].(map[string]interface{})
	if data3["id"] != cardID {
		t.Errorf("Barcode lookup returned wrong card: %v", data3["id"])
	}
}

func TestIssueCardMissingFields(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards",
		map[string]interface{}{
			"plan_id": "plan-h-002",
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing fields, got %d", w.Code)
	}
}

func TestIssueCardPlanNotFoundHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards",
		map[string]interface{}{
			"plan_id":               "nonexistent",
			"order_id":              "order-h-003",
			"initial_department_id": "dept-weaving",
		}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing plan, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCardPrintHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-h-004", "PP-H-004")
	card := testutil.SeedTestCard(t, env.DB, "card-h-004", "plan-h-004", "dept-weaving")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/print", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["print_count"].(float64) != 1 {
		t.Errorf("Expected print_count 1, got %v", data["print_count"])
	}
}

func TestListCardsFilter(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-h-005", "PP-H-005")
	testutil.SeedTestPlan(t, env.DB, "plan-h-006", "PP-H-006")
	testutil.SeedTestCard(t, env.DB, "card-h-005", "plan-h-005", "dept-weaving")
	testutil.SeedTestCard(t, env.DB, "card-h-006", "plan-h-006", "dept-dyeing")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/cards?plan_id=plan-h-005", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("Expected 1 card for plan filter, got %d", len(items))
	}
}

func TestCardRequiresAuth(t *testing.T) {
	env, _ := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/cards", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}
