package httpcapture_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaushik2901/async-endpoints/internal/httpcapture"
)

func TestCaptureReadsHeadersAndQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/echo?tag=a&tag=b", nil)
	req.Header.Set("Async-Job-Id", "11111111-1111-1111-1111-111111111111")

	captured := httpcapture.Capture(req)

	values := captured.Headers["Async-Job-Id"]
	if len(values) != 1 || *values[0] != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("expected Async-Job-Id header to be captured, got %v", values)
	}

	tags := captured.QueryParams["tag"]
	if len(tags) != 2 || *tags[0] != "a" || *tags[1] != "b" {
		t.Fatalf("expected tag=a,b to be captured, got %v", tags)
	}
}

func TestCaptureWithNoQueryParamsYieldsEmptyMap(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/echo", nil)
	captured := httpcapture.Capture(req)

	if len(captured.QueryParams) != 0 {
		t.Fatalf("expected no query params, got %v", captured.QueryParams)
	}
	if captured.RouteParams != nil {
		t.Fatal("expected nil route params for the stdlib capture path")
	}
}
