package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
)

const tokenHeader = "X-Postmark-Server-Token"

var (
	failFirstN  = 0
	reqCount    = 0
	serverToken = ""
)

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

func main() {
	// Parse fail first settings
	if v := os.Getenv("FAIL_FIRST_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			failFirstN = n
		}
	}
	// Parse expected server token
	if v := os.Getenv("SERVER_TOKEN"); v != "" {
		serverToken = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/email", handleEmail)

	addr := ":8081"
	log.Printf("fake-gateway listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleEmail(w http.ResponseWriter, r *http.Request) {
	reqCount++
	b, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if serverToken != "" && r.Header.Get(tokenHeader) != serverToken {
		log.Printf("fake-gateway rejected request: bad server token")
		writeError(w, http.StatusUnauthorized, 10, "Invalid server token")
		return
	}

	var req sendEmailRequest
	if err := json.Unmarshal(b, &req); err != nil {
		log.Printf("fake-gateway rejected request: bad JSON: %v", err)
		writeError(w, http.StatusUnprocessableEntity, 300, "Invalid JSON body")
		return
	}
	if req.From == "" || req.To == "" || req.Subject == "" || (req.HTMLBody == "" && req.TextBody == "") {
		log.Printf("fake-gateway rejected request: missing fields body=%s", truncate(string(b), 160))
		writeError(w, http.StatusUnprocessableEntity, 300, "Missing required fields")
		return
	}

	// Simulate flakiness: first N requests -> 500
	if reqCount <= failFirstN {
		log.Printf("FAILING (%d/%d) to=%s subject=%q", reqCount, failFirstN, req.To, req.Subject)
		writeError(w, http.StatusInternalServerError, 100, "Temporary failure")
		return
	}

	log.Printf("fake-gateway OK to=%s subject=%q", req.To, req.Subject)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"To":        req.To,
		"ErrorCode": 0,
		"Message":   "OK",
	})
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ErrorCode": code,
		"Message":   msg,
	})
}

// truncate truncates a string to the specified length and adds an ellipsis if truncated
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
