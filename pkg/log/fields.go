package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Service
	FieldService = "service"

	// Direct messages
	FieldMessageID      = "message_id"
	FieldReceiverID     = "receiver_id"
	FieldConversationID = "conversation_key"
	FieldConnID         = "conn_id"

	// Log type
	FieldLogType           = "log_type"
	LogTypeAudit           = "audit"
	LogTypeDeliveryWarning = "delivery_warning"
)
