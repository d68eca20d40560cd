package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientPassesRequestThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("X-Test-Key") != "k1" {
			t.Errorf("header lost: %q", r.Header.Get("X-Test-Key"))
		}
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		if string(body) != "a=1&b=2" {
			t.Errorf("body lost: %q", body)
		}
		w.Write([]byte(`{"result":"ok","value":42}`))
	}))
	defer server.Close()

	c := NewClient("testvenue", ClientOptions{RequestsPerSecond: 100}, nil)
	res, err := c.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"X-Test-Key": "k1"},
		Body:    "a=1&b=2",
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if res.Status != 200 {
		t.Errorf("status: %d", res.Status)
	}
	if res.JSON.Get("value").Int() != 42 {
		t.Errorf("body not parsed: %s", res.Body)
	}
}

func TestClientClassifierRunsBeforeStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"1013","msg":"order rejected"}`))
	}))
	defer server.Close()

	classify := func(res *Response) error {
		if code := res.JSON.Get("code").String(); code == "1013" {
			return NewError(KindInvalidOrder, "testvenue", res.JSON.Get("msg").String())
		}
		return nil
	}
	c := NewClient("testvenue", ClientOptions{RequestsPerSecond: 100}, classify)
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if !IsKind(err, KindInvalidOrder) {
		t.Errorf("classifier should win over HTTP status, got %v", err)
	}
}

func TestClientHTTPStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient("testvenue", ClientOptions{RequestsPerSecond: 100}, nil)
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	if !IsKind(err, KindOnMaintenance) {
		t.Errorf("503 should classify OnMaintenance, got %v", err)
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient("testvenue", ClientOptions{RequestsPerSecond: 100}, nil)
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: url})
	if !IsKind(err, KindNetwork) {
		t.Errorf("dial failure should classify NetworkError, got %v", err)
	}
}
