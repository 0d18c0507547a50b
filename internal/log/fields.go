package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldUserID        = "user_id"
	FieldRuleID        = "rule_id"
	FieldCategoryID    = "category_id"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldFrequency     = "frequency"
	FieldNextDueDate   = "next_due_date"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStore     = "store"
	ComponentEngine    = "engine"
	ComponentScheduler = "scheduler"
	ComponentEvents    = "events"
	ComponentBackend   = "backend"
)
