package utils

// -----------------------------------------------------------------------------

// Defaults for the alert surfaces and retention.
const (
	DefaultRecentBufferSize  = 256
	DefaultRecentAlertLimit  = 50
	DefaultClientSendBuffer  = 64
	DefaultRecorderQueue     = 1024
	DefaultRetentionDays     = 7
	DefaultReconnectBaseSecs = 1.0
	DefaultReconnectMaxSecs  = 30.0
)
