package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain on the context logger.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldModelType is the classifier kind a request targets (fruit, leaf)
	FieldModelType = "model_type"

	// FieldPredictionID is the persisted prediction row ID
	FieldPredictionID = "prediction_id"

	// FieldStagedFile is the collision-free name of a staged upload
	FieldStagedFile = "staged_file"

	// FieldClientIP is the requester address as seen by the server
	FieldClientIP = "client_ip"
)

// Metric fields, attached per log line through the Entry API.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldConfidence is the classifier confidence of a prediction
	FieldConfidence = "confidence"
)
