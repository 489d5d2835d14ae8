package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

// Usage: health-test [base-url]
func main() {
	base := "http://localhost:8080"
	if len(os.Args) > 1 {
		base = strings.TrimRight(os.Args[1], "/")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	if err := checkHealth(client, base+"/health"); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if err := checkMetrics(client, base+"/metrics"); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ All checks passed")
}

func get(client *http.Client, url string) ([]byte, error) {
	fmt.Printf("🔍 GET %s\n", url)
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("%s returned %s: %s", url, resp.Status, body)
	}
	return body, nil
}

func checkHealth(client *http.Client, url string) error {
	body, err := get(client, url)
	if err != nil {
		return err
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("error parsing health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("health status is %q", health.Status)
	}
	if health.Services.Database.Status != "ok" {
		return fmt.Errorf("database status is %q: %s", health.Services.Database.Status, health.Services.Database.Error)
	}

	fmt.Printf("   Status: %s, version %s, database %s (%s)\n",
		health.Status, health.Version, health.Services.Database.Status, health.Timestamp)
	return nil
}

func checkMetrics(client *http.Client, url string) error {
	body, err := get(client, url)
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), "http_request_duration_seconds") {
		return fmt.Errorf("metrics output has no request histogram")
	}
	fmt.Println("   Metrics endpoint exposes request histogram")
	return nil
}
