package errors_test

import (
	"errors"
	"testing"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
)

func TestCodeAndVars(t *testing.T) {
	e := serr.Code(serr.ErrCodePublishFailed)
	if e.Error() != serr.ErrCodePublishFailed {
		t.Fatalf("unexpected error string: %s", e.Error())
	}

	// exported variables must carry their codes
	tests := []struct {
		err  error
		code string
	}{
		{serr.ErrInvalidEvent, serr.ErrCodeInvalidEvent},
		{serr.ErrUnknownEventType, serr.ErrCodeUnknownEventType},
		{serr.ErrLagged, serr.ErrCodeLagged},
		{serr.ErrBusClosed, serr.ErrCodeBusClosed},
		{serr.ErrSubscriptionClosed, serr.ErrCodeSubscriptionClosed},
		{serr.ErrAlreadyRunning, serr.ErrCodeAlreadyRunning},
		{serr.ErrAlreadyStopped, serr.ErrCodeAlreadyStopped},
		{serr.ErrInvalidConfig, serr.ErrCodeInvalidConfig},
		{serr.ErrConnectFailed, serr.ErrCodeConnectFailed},
		{serr.ErrTopologyFailed, serr.ErrCodeTopologyFailed},
		{serr.ErrTopologyMismatch, serr.ErrCodeTopologyMismatch},
		{serr.ErrPublishFailed, serr.ErrCodePublishFailed},
		{serr.ErrSerializationFailed, serr.ErrCodeSerializationFailed},
	}

	for _, tc := range tests {
		if !errors.Is(tc.err, serr.Code(tc.code)) {
			t.Fatalf("expected %s to be %s", tc.err, tc.code)
		}
	}
}
