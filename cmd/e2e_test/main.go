package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:8080"

func main() {
	if v := os.Getenv("E2E_BASE_URL"); v != "" {
		baseURL = v
	}
	token := os.Getenv("API_TOKEN")
	if token == "" {
		token = "e2e-token"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	call("GET", "/health", nil, 200)
	call("GET", "/currencies", nil, 200)

	// 2. Session and display currency
	call("PUT", "/session/token", map[string]string{"token": token}, 200)
	call("PUT", "/display-currency", map[string]string{"currency": "KRW"}, 200)
	call("PUT", "/display-currency", map[string]string{"currency": "🇰🇷 KRW"}, 400)

	// 3. Add a holding; prices may be unavailable, which only adds notices
	symbol := fmt.Sprintf("E2E%d", time.Now().Unix()%100000)
	call("POST", "/holdings", map[string]interface{}{
		"symbol":              symbol,
		"name":                "e2e holding",
		"quantity":            10,
		"cost_basis_per_unit": "243.04",
		"purchase_currency":   "USD",
	}, 201)
	call("POST", "/holdings", map[string]interface{}{"symbol": symbol, "quantity": 0, "purchase_currency": "USD"}, 400)

	// 4. Portfolio in both currencies
	call("GET", "/portfolio", nil, 200)
	call("GET", "/portfolio?currency=USD", nil, 200)

	// 5. Delete through the confirmation flow
	call("POST", "/selection/"+symbol, nil, 200)
	req := call("POST", "/delete-requests", nil, 201)
	id, _ := req["id"].(string)
	done := call("POST", "/delete-requests/"+id+"/confirm", nil, 200)
	if done["state"] != "settled" {
		log.Fatalf("delete request ended in state %v", done["state"])
	}

	// 6. Verify Portfolio
	call("GET", "/portfolio", nil, 200)

	fmt.Println("ALL TESTS PASSED")
}

func call(method, path string, body interface{}, expectedStatus int) map[string]interface{} {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))

	out := map[string]interface{}{}
	_ = json.Unmarshal(respBody, &out)
	return out
}
