package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, recorder
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0&offset=-3", 20, 0},
		{"?limit=abc&offset=xyz", 20, 0},
	}
	for _, tt := range tests {
		c, _ := testContext("/runs" + tt.query)
		limit, offset := pageParams(c, 20)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Fatalf("pageParams(%q) = (%d, %d), want (%d, %d)", tt.query, limit, offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestParseRunIDRejectsGarbage(t *testing.T) {
	c, recorder := testContext("/runs/nope")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	if _, ok := parseRunID(c); ok {
		t.Fatal("expected parse failure")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestFormatOptionalTimestamp(t *testing.T) {
	if formatOptionalTimestamp(nil) != nil {
		t.Fatal("expected nil for missing timestamp")
	}
	ts := time.Date(2025, 9, 1, 22, 0, 0, 5, time.FixedZone("CEST", 2*3600))
	got := formatOptionalTimestamp(&ts)
	if got == nil || *got != "2025-09-01T20:00:00.000000005Z" {
		t.Fatalf("unexpected timestamp %v", got)
	}
}
