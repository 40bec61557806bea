package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tu "github.com/desertthunder/tubetodo/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService(customClient, nil)

			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
			if srv.logger == nil {
				t.Error("expected a default logger")
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService(nil, nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/api/v1/stats" {
					t.Errorf("expected path '/api/v1/stats', got %s", r.URL.Path)
				}
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("expected Accept header, got %q", r.Header.Get("Accept"))
				}
				if r.Header.Get("User-Agent") != userAgent {
					t.Errorf("expected User-Agent %s, got %q", userAgent, r.Header.Get("User-Agent"))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(nil, nil)
			resp, err := srv.Get(context.Background(), server.URL+"/api/v1/stats")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK || !resp.OK() {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
			if resp.JSONData == nil {
				t.Error("expected JSONData to be populated")
			}
			if resp.URL != server.URL+"/api/v1/stats" {
				t.Errorf("expected URL to be recorded, got %s", resp.URL)
			}
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			resp, err := NewAPIService(nil, nil).Get(context.Background(), server.URL)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response to not be JSON")
			}
			if resp.JSONData != nil {
				t.Error("expected JSONData to be nil")
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
		})

		t.Run("Non-Success Status Is Not An Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			resp, err := NewAPIService(nil, nil).Get(context.Background(), server.URL)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.OK() {
				t.Error("expected 404 to not be OK")
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			_, err := NewAPIService(nil, nil).Get(context.Background(), "http://example.com/test\x00invalid")

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			_, err := NewAPIService(client, nil).Get(context.Background(), "http://example.com/test")

			if err == nil {
				t.Fatal("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request Hides API Key", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			target := server.URL + "/playlists?id=PL1&key=AIzaSySecretKeyValue12345"
			server.Close()

			_, err := NewAPIService(nil, nil).Get(context.Background(), target)

			if err == nil {
				t.Fatal("expected error for closed server")
			}
			if strings.Contains(err.Error(), "AIzaSySecretKeyValue12345") {
				t.Errorf("error leaks the api key: %v", err)
			}
			if !strings.Contains(err.Error(), "key=REDACTED") {
				t.Errorf("expected redacted URL in error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			_, err := NewAPIService(client, nil).Get(context.Background(), "http://example.com/test")

			if err == nil {
				t.Fatal("expected error for failed body read")
			}
			if !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := NewAPIService(nil, nil).Get(ctx, server.URL)

			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("Response Headers Are Preserved", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Custom-Header", "test-value")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("test"))
			}))
			defer server.Close()

			resp, err := NewAPIService(nil, nil).Get(context.Background(), server.URL)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header 'test-value', got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})
	})

	t.Run("APIResponse", func(t *testing.T) {
		t.Run("JSON Detection", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"valid": "json"}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(nil, nil).Get(context.Background(), server.URL)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			jsonMap, ok := resp.JSONData.(map[string]any)
			if !ok {
				t.Fatal("expected JSONData to be map[string]any")
			}
			if jsonMap["valid"] != "json" {
				t.Errorf("expected JSONData['valid'] to be 'json', got %v", jsonMap["valid"])
			}
		})

		t.Run("OK Range", func(t *testing.T) {
			for status, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 301: false, 500: false} {
				if got := (&APIResponse{StatusCode: status}).OK(); got != want {
					t.Errorf("OK() for %d = %v, want %v", status, got, want)
				}
			}
		})
	})
}
