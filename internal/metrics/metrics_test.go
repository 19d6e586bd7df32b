package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()

	SetSessionsOnline(3)
	RecordSession(SessionRegistered)
	RecordProtocolViolation(SideHub)
	RecordHTTPRequest("POST", "/upload", 202, 12*time.Millisecond)

	if got := testutil.ToFloat64(sessionsOnline); got != 3 {
		t.Errorf("sessions_online = %v, want 3", got)
	}
}

func TestRecordDeliveryCountsWrittenBytes(t *testing.T) {
	before := testutil.ToFloat64(deliveredBytes)
	queuedBefore := testutil.ToFloat64(deliveriesTotal.WithLabelValues("queued"))

	RecordDelivery("queued", 100)
	RecordDelivery("written", 17)

	if got := testutil.ToFloat64(deliveredBytes) - before; got != 17 {
		t.Errorf("written bytes delta = %v, want 17", got)
	}
	if got := testutil.ToFloat64(deliveriesTotal.WithLabelValues("queued")) - queuedBefore; got != 1 {
		t.Errorf("queued delta = %v, want 1", got)
	}
}
