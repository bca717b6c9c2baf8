package observability

import (
	"testing"
	"time"

	"github.com/tahomarobotics/koala/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordFrame("match")
	RecordDispatchError("malformed_envelope")
	RecordFileReceived()
	ConnOpened()
	ConnClosed()
	RecordHTTPRequest("koalad", "GET", "/health", 200, 12*time.Millisecond)
}
