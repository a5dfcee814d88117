// Seed script for loading demo org truth into a running server.
// Run with: go run ./scripts/seed.go
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

	"github.com/joho/godotenv"
)

type truth struct {
	TruthID string            `json:"truth_id"`
	Kind    string            `json:"kind"`
	Content string            `json:"content"`
	Routing map[string]string `json:"routing,omitempty"`
}

func main() {
	// Load environment
	envFile := os.Getenv("COS_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	baseURL := os.Getenv("COS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	apiKey := os.Getenv("COS_API_KEY")

	truths := []truth{
		{"pricing_policy", "policy", "Enterprise discounts above 20% need CEO sign-off.", map[string]string{"employee_sarah": "summary"}},
		{"hiring_plan", "plan", "Engineering hires two backend engineers this quarter; HR owns the pipeline.", map[string]string{"employee_sarah": "full", "employee_bob": "summary"}},
		{"oncall_rotation", "process", "Infra on-call rotates weekly; incidents page the engineering channel first.", map[string]string{"employee_bob": "full"}},
		{"launch_date", "milestone", "The product launch is planned for the first week of next month.", nil},
	}

	client := &http.Client{Timeout: 30 * time.Second}
	for _, t := range truths {
		version, err := ingest(client, baseURL, apiKey, t)
		if err != nil {
			log.Printf("Warning: Failed to ingest %s: %v", t.TruthID, err)
			continue
		}
		fmt.Printf("Ingested truth [%s] %s v%d: %s\n", t.Kind, t.TruthID, version, truncate(t.Content, 50))
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nTo ask a question, use:")
	fmt.Printf("curl -H 'X-API-Key: %s' -H 'X-Employee-Name: Bob' -d '{\"text\":\"when do we launch?\"}' %s/v1/ask\n", apiKey, baseURL)
	fmt.Println("\nTo inspect current org truth:")
	fmt.Printf("curl -H 'X-API-Key: %s' %s/v1/truth/current\n", apiKey, baseURL)
}

func ingest(client *http.Client, baseURL, apiKey string, t truth) (int64, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/knowledge", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out struct {
		Trace struct {
			Version int64 `json:"version"`
		} `json:"trace"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Trace.Version, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
