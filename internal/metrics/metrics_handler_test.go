package metrics

import (
	"testing"

	"marketdatamanager/logger"
)

func TestRegisterMetricHandlerReceivesDispatch(t *testing.T) {
	received := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { received <- m })
	defer UnregisterMetricHandler(id)

	recordMetric(logger.GetLogger(), "test", "widgets_total", 3, "counter", nil)

	select {
	case m := <-received:
		if m.Name != "widgets_total" || m.Component != "test" {
			t.Fatalf("unexpected metric: %+v", m)
		}
	default:
		t.Fatal("expected dispatched metric, got none")
	}
}

func TestUnregisterMetricHandlerStopsDelivery(t *testing.T) {
	received := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { received <- m })
	UnregisterMetricHandler(id)

	recordMetric(logger.GetLogger(), "test", "widgets_total", 1, "counter", nil)

	select {
	case <-received:
		t.Fatal("handler should not have received a metric after unregistering")
	default:
	}
}

func TestRecordMetricRejectsEmptyName(t *testing.T) {
	if _, ok := recordMetric(logger.GetLogger(), "test", "", 1, "counter", nil); ok {
		t.Fatal("expected recordMetric to reject an empty metric name")
	}
}

func TestCloneFieldsIsIndependentCopy(t *testing.T) {
	original := logger.Fields{"a": 1}
	clone := cloneFields(original)
	clone["a"] = 2
	if original["a"] != 1 {
		t.Fatalf("cloneFields should not alias the source map, original mutated to %v", original["a"])
	}
}
