package metrics

import (
	"context"
	"testing"
)

func TestToFloat64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{1, 1, true},
		{int64(2), 2, true},
		{float32(1.5), 1.5, true},
		{3.25, 3.25, true},
		{"nope", 0, false},
	}
	for _, c := range cases {
		got, ok := toFloat64(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("toFloat64(%v) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestMetricUnitFromString(t *testing.T) {
	if _, ok := metricUnitFromString("count"); !ok {
		t.Error("expected count to be a recognized unit")
	}
	if _, ok := metricUnitFromString("percent"); !ok {
		t.Error("expected percent to be a recognized unit")
	}
	if _, found := metricUnitFromString("furlongs"); found {
		t.Error("expected an unrecognized unit to report found=false")
	}
}

func TestCreateDashboardFromTemplateNoopsWithoutClient(t *testing.T) {
	cwState.Store(&cloudWatchState{namespace: "MarketDataManager", dashboardName: "MarketDataManager"})
	if err := CreateDashboardFromTemplate(context.Background()); err != nil {
		t.Fatalf("expected no-op when no CloudWatch client is configured, got %v", err)
	}
}

func TestPublishMetricDatumNoopsWithoutClient(t *testing.T) {
	cwState.Store(&cloudWatchState{namespace: "MarketDataManager"})
	// Must not panic or block when no client has been initialized.
	publishMetricDatum(context.Background(), "test", "widgets_total", 1, nil)
}
