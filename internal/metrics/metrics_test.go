package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

func TestCountersAccumulate(t *testing.T) {
	before := testutil.ToFloat64(PagesFetched)
	PagesFetched.Inc()
	PagesFetched.Inc()
	if got := testutil.ToFloat64(PagesFetched); got != before+2 {
		t.Errorf("PagesFetched = %v, want %v", got, before+2)
	}

	beforeMiss := testutil.ToFloat64(FieldMisses.WithLabelValues("price"))
	FieldMisses.WithLabelValues("price").Inc()
	if got := testutil.ToFloat64(FieldMisses.WithLabelValues("price")); got != beforeMiss+1 {
		t.Errorf("FieldMisses{field=price} = %v, want %v", got, beforeMiss+1)
	}
}

func TestServerEndpoints(t *testing.T) {
	srv := NewServer(0, zaptest.NewLogger(t))

	ts := httptest.NewServer(srv.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp2.Body.Close() }()
	body, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "catalog_pages_fetched_total") {
		t.Error("metrics output should include the catalog counters")
	}
}
