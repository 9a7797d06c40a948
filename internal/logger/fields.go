package logger

// Standard field names for structured logging.
// Use these constants instead of raw strings to keep log keys consistent.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldPath      = "path"
	FieldFile      = "file"
	FieldError     = "error"

	FieldCatalogVersion = "catalog_version"
	FieldEntityID       = "entity_id"
	FieldProperty       = "property"
	FieldMetric         = "metric"
	FieldCount          = "count"
	FieldSkipped        = "skipped"
	FieldDurationMS     = "duration_ms"

	FieldAddress = "address"
	FieldPort    = "port"
)
