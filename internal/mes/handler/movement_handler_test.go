package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
)

func TestMovementLifecycleHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-mh-001", "PP-MH-001")
	card := testutil.SeedTestCard(t, env.DB, "card-mh-001", "plan-mh-001", "dept-weaving")

	// 开始流转
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/movements",
		map[string]interface{}{
			"to_department_id": "dept-dyeing",
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != "started" {
		t.Errorf("Expected status started, got %v", data["status"])
	}
	movementID := data["id"].(string)

	// 同卡再开一跳 → 409
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/movements",
		map[string]interface{}{
			"to_department_id": "dept-finishing",
		}, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for conflicting movement, got %d: %s", w2.Code, w2.Body.String())
	}

	// 关闭流转
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/movements/"+movementID+"/complete",
		map[string]interface{}{
			"outcome": "completed",
		}, token)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	resp3 := testutil.ParseResponse(w3)
	data3 := resp3["data"].(map[string]interface{})
	if data3["end_time"] == nil {
		t.Error("Completed movement should have end_time")
	}

	// 重复关闭 → 409
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/movements/"+movementID+"/complete",
		map[string]interface{}{
			"outcome": "completed",
		}, token)
	if w4.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for double complete, got %d: %s", w4.Code, w4.Body.String())
	}

	// 流转历史
	w5 := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/cards/"+card.ID+"/movements", nil, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
	resp5 := testutil.ParseResponse(w5)
	history := resp5["data"].([]interface{})
	if len(history) != 1 {
		t.Errorf("Expected 1 movement in history, got %d", len(history))
	}
}

func TestCompleteMovementInvalidOutcome(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-mh-002", "PP-MH-002")
	card := testutil.SeedTestCard(t, env.DB, "card-mh-002", "plan-mh-002", "dept-weaving")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/movements",
		map[string]interface{}{
			"to_department_id": "dept-dyeing",
		}, token)
	resp := testutil.ParseResponse(w)
	movementID := resp["data"].(map[string]interface{})["id"].(string)

	// outcome 只接受 completed / rejected
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/movements/"+movementID+"/complete",
		map[string]interface{}{
			"outcome": "finished",
		}, token)
	if w2.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid outcome, got %d", w2.Code)
	}
}

func TestStartMovementCardNotFound(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/nonexistent/movements",
		map[string]interface{}{
			"to_department_id": "dept-dyeing",
		}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRejectMovementHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-mh-003", "PP-MH-003")
	card := testutil.SeedTestCard(t, env.DB, "card-mh-003", "plan-mh-003", "dept-weaving")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/movements",
		map[string]interface{}{
			"to_department_id": "dept-qc",
		}, token)
	resp := testutil.ParseResponse(w)
	movementID := resp["data"].(map[string]interface{})["id"].(string)

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/movements/"+movementID+"/complete",
		map[string]interface{}{
			"outcome": "rejected",
			"notes":   "色差超标",
			"defects": []map[string]interface{}{
				{"type": "color", "description": "色差超标", "qty": 3},
			},
		}, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	// 卡终结后再开流转 → 400
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/mes/cards/"+card.ID+"/movements",
		map[string]interface{}{
			"to_department_id": "dept-dyeing",
		}, token)
	if w3.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for terminal card, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestTrackingSummaryHTTP(t *testing.T) {
	env, _ := setupHandlerTest(t)
	token := testutil.DefaultTestToken()
	testutil.SeedTestPlan(t, env.DB, "plan-mh-004", "PP-MH-004")
	testutil.SeedTestCard(t, env.DB, "card-mh-004", "plan-mh-004", "dept-weaving")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/mes/tracking/summary", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_cards"].(float64) != 1 {
		t.Errorf("Expected total_cards 1, got %v", data["total_cards"])
	}
	if data["created_cards"].(float64) != 1 {
		t.Errorf("Expected created_cards 1, got %v", data["created_cards"])
	}
}
