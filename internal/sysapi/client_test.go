package sysapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const mockInfoResponse = `{
	"firmware_version": "v1.4.0",
	"model": "Melexis Compact Master LIN",
	"reset_reason": 1,
	"up_time": 93784000000
}`

// 192.168.4.1 / 255.255.255.0 / 192.168.4.254 in the firmware's numeric form
const mockWiFiResponse = `{
	"ssid": "lab",
	"password": "secret",
	"hostname": "mcm-lab",
	"mac": "24:0A:C4:00:11:22",
	"link_up": true,
	"ip": 17082560,
	"netmask": 16777215,
	"gateway": 4261718208
}`

func newTestClient(url string) *Client {
	c := NewClientWithURL(url)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		host   string
		secure bool
		want   string
	}{
		{"192.168.4.1", false, "http://192.168.4.1"},
		{"mcm.local", true, "https://mcm.local"},
	}
	for _, tt := range tests {
		c := NewClient(tt.host, tt.secure)
		if c.BaseURL != tt.want {
			t.Errorf("NewClient(%q, %v).BaseURL = %q, want %q", tt.host, tt.secure, c.BaseURL, tt.want)
		}
		if c.HTTPClient == nil || c.HTTPClient.Timeout != DefaultTimeout {
			t.Error("HTTPClient not configured with the default timeout")
		}
	}
}

func TestSetRetryAndTimeout(t *testing.T) {
	c := NewClient("192.168.4.1", false)
	c.SetRetry(5, 2*time.Second)
	c.SetTimeout(time.Second)

	if c.MaxRetries != 5 || c.RetryDelay != 2*time.Second {
		t.Errorf("retry = %d/%v", c.MaxRetries, c.RetryDelay)
	}
	if c.HTTPClient.Timeout != time.Second {
		t.Errorf("Timeout = %v", c.HTTPClient.Timeout)
	}
}

func TestGetInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != PathInfo {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockInfoResponse))
	}))
	defer server.Close()

	info, err := newTestClient(server.URL).GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Model != "Melexis Compact Master LIN" || info.FirmwareVersion != "v1.4.0" {
		t.Errorf("info = %+v", info)
	}
	if info.ResetReasonText() != "Reset due to power-on event" {
		t.Errorf("ResetReasonText() = %q", info.ResetReasonText())
	}
	if want := 26*time.Hour + 3*time.Minute + 4*time.Second; info.UpTime() != want {
		t.Errorf("UpTime() = %v, want %v", info.UpTime(), want)
	}
}

func TestGetNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mockWiFiResponse))
	}))
	defer server.Close()

	cfg, err := newTestClient(server.URL).GetNetwork(context.Background())
	if err != nil {
		t.Fatalf("GetNetwork() error = %v", err)
	}
	if !cfg.LinkUp || cfg.Hostname != "mcm-lab" || cfg.MAC != "24:0A:C4:00:11:22" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.IP.String() != "192.168.4.1" {
		t.Errorf("IP = %s", cfg.IP)
	}
	if cfg.Netmask.String() != "255.255.255.0" {
		t.Errorf("Netmask = %s", cfg.Netmask)
	}
	if cfg.Gateway.String() != "192.168.4.254" {
		t.Errorf("Gateway = %s", cfg.Gateway)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(mockInfoResponse))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GetInfo(context.Background()); err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetInfo(context.Background())
	if !IsHTTPError(err) || StatusCode(err) != http.StatusMethodNotAllowed {
		t.Fatalf("GetInfo() error = %v, want HTTP 405", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestGetMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetInfo(context.Background())
	if !IsParseError(err) {
		t.Errorf("GetInfo() error = %v, want parse error", err)
	}
}

func TestPutCommandsExpectNoContent(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(c *Client) error
	}{
		{"reboot", PathReboot, func(c *Client) error { return c.Reboot(context.Background()) }},
		{"identify", PathIdentify, func(c *Client) error { return c.Identify(context.Background()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				if r.Method != http.MethodPut || r.URL.Path != tt.path {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			if err := tt.call(newTestClient(server.URL)); err != nil {
				t.Fatalf("error = %v", err)
			}
			if calls != 1 {
				t.Errorf("server called %d times", calls)
			}
		})
	}
}

func TestPutIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Reboot(context.Background()); !IsHTTPError(err) {
		t.Fatalf("Reboot() error = %v, want HTTP error", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestSetNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != PathSystem {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var got map[string]string
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("request body: %v", err)
		}
		if len(got) != 1 || got["hostname"] != "mcm-bench" {
			t.Errorf("request body = %s", body)
		}
		_, _ = w.Write([]byte(strings.Replace(mockWiFiResponse, "mcm-lab", "mcm-bench", 1)))
	}))
	defer server.Close()

	hostname := "mcm-bench"
	cfg, err := newTestClient(server.URL).SetNetwork(context.Background(), &NetworkUpdate{Hostname: &hostname})
	if err != nil {
		t.Fatalf("SetNetwork() error = %v", err)
	}
	if cfg.Hostname != "mcm-bench" {
		t.Errorf("Hostname = %q", cfg.Hostname)
	}
}

func TestSetNetworkValidation(t *testing.T) {
	long := strings.Repeat("x", MaxHostnameLength+1)
	empty := ""
	tests := []struct {
		name   string
		update NetworkUpdate
	}{
		{"empty update", NetworkUpdate{}},
		{"hostname too long", NetworkUpdate{Hostname: &long}},
		{"empty ssid", NetworkUpdate{SSID: &empty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithURL("http://127.0.0.1:1")
			if _, err := c.SetNetwork(context.Background(), &tt.update); !IsValidationError(err) {
				t.Errorf("SetNetwork() error = %v, want validation error", err)
			}
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newTestClient(url)
	c.MaxRetries = 0
	_, err := c.GetInfo(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("GetInfo() error = %v, want network error", err)
	}
	if hint := GetTroubleshootingHint(err); hint == "" {
		t.Error("expected a troubleshooting hint")
	}
}
