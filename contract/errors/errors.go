package errors

// Error codes for the event-stream contracts. Keep stable; used across the bus,
// the transport layer and the adapters.
const (
	ErrCodeInvalidEvent        = "eventstream.invalid_event"
	ErrCodeUnknownEventType    = "eventstream.unknown_event_type"
	ErrCodeLagged              = "eventstream.lagged"
	ErrCodeBusClosed           = "eventstream.bus_closed"
	ErrCodeSubscriptionClosed  = "eventstream.subscription_closed"
	ErrCodeAlreadyRunning      = "eventstream.already_running"
	ErrCodeAlreadyStopped      = "eventstream.already_stopped"
	ErrCodeInvalidConfig       = "eventstream.invalid_config"
	ErrCodeConnectFailed       = "eventstream.connect_failed"
	ErrCodeTopologyFailed      = "eventstream.topology_failed"
	ErrCodeTopologyMismatch    = "eventstream.topology_mismatch"
	ErrCodePublishFailed       = "eventstream.publish_failed"
	ErrCodeSerializationFailed = "eventstream.serialization_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrInvalidEvent        = Code(ErrCodeInvalidEvent)
	ErrUnknownEventType    = Code(ErrCodeUnknownEventType)
	ErrLagged              = Code(ErrCodeLagged)
	ErrBusClosed           = Code(ErrCodeBusClosed)
	ErrSubscriptionClosed  = Code(ErrCodeSubscriptionClosed)
	ErrAlreadyRunning      = Code(ErrCodeAlreadyRunning)
	ErrAlreadyStopped      = Code(ErrCodeAlreadyStopped)
	ErrInvalidConfig       = Code(ErrCodeInvalidConfig)
	ErrConnectFailed       = Code(ErrCodeConnectFailed)
	ErrTopologyFailed      = Code(ErrCodeTopologyFailed)
	ErrTopologyMismatch    = Code(ErrCodeTopologyMismatch)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)
