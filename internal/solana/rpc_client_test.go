package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHTTPClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getBalance" {
			t.Errorf("expected method getBalance, got %s", req.Method)
		}
		if len(req.Params) != 1 || req.Params[0] != "wallet123" {
			t.Errorf("unexpected params: %v", req.Params)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value":   uint64(123456789),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.GetBalance(context.Background(), "wallet123")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 123456789 {
		t.Errorf("expected balance 123456789, got %d", balance)
	}
}

func TestHTTPClient_GetTokenAccountBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenAccountBalance" {
			t.Errorf("expected method getTokenAccountBalance, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"amount":   "5000000000",
					"decimals": 9,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	amount, err := client.GetTokenAccountBalance(context.Background(), "tokenacct")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}
	if amount.Amount != 5000000000 {
		t.Errorf("expected amount 5000000000, got %d", amount.Amount)
	}
	if amount.Decimals != 9 {
		t.Errorf("expected 9 decimals, got %d", amount.Decimals)
	}
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
					"lastValidBlockHeight": uint64(300000000),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	bh, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if bh.Blockhash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("unexpected blockhash %s", bh.Blockhash)
	}
	if bh.LastValidBlockHeight != 300000000 {
		t.Errorf("unexpected last valid block height %d", bh.LastValidBlockHeight)
	}
}

func TestHTTPClient_SendTransaction_NoRetry(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(0))

	_, err := client.SendTransaction(context.Background(), "dGVzdA==")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// Submission must go out exactly once, even on server failure.
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 submission attempt, got %d", got)
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "5VERYLONGBASE58SIGNATURExxxxxxxxxxxxxxxxxxxxxxxxx",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	sig, err := client.SendTransaction(context.Background(), "dGVzdA==")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5VERYLONGBASE58SIGNATURExxxxxxxxxxxxxxxxxxxxxxxxx" {
		t.Errorf("unexpected signature %s", sig)
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{
						"slot":               int64(98765),
						"confirmations":      nil,
						"confirmationStatus": "finalized",
						"err":                nil,
					},
					nil,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"sig1", "sig2"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Confirmed() {
		t.Error("expected first signature confirmed")
	}
	if statuses[0].Slot != 98765 {
		t.Errorf("expected slot 98765, got %d", statuses[0].Slot)
	}
	if statuses[1] != nil {
		t.Errorf("expected nil status for unknown signature, got %+v", statuses[1])
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid param",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(0))

	_, err := client.GetBalance(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// RPC-level errors are terminal, not retried.
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call for RPC error, got %d", got)
	}
}

func TestSignatureStatus_Confirmed(t *testing.T) {
	cases := []struct {
		name   string
		status *SignatureStatus
		want   bool
	}{
		{"nil status", nil, false},
		{"processed only", &SignatureStatus{ConfirmationStatus: "processed"}, false},
		{"confirmed", &SignatureStatus{ConfirmationStatus: "confirmed"}, true},
		{"finalized", &SignatureStatus{ConfirmationStatus: "finalized"}, true},
		{"confirmed with err", &SignatureStatus{ConfirmationStatus: "confirmed", Err: map[string]interface{}{"InstructionError": []interface{}{}}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Confirmed(); got != tc.want {
				t.Errorf("Confirmed() = %v, want %v", got, tc.want)
			}
		})
	}
}
