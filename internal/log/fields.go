package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldExpenseID   = "expense_id"
	FieldCategoryID  = "category_id"
	FieldPaymentID   = "payment_method_id"
	FieldTagID       = "tag_id"
	FieldVendor      = "vendor"
	FieldAmount      = "amount"
	FieldTable       = "table"
	FieldDatabase    = "database"
	FieldInitPath    = "init_path"
	FieldResultCount = "result_count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentState   = "state"
	ComponentCache   = "cache"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConstraint    = "constraint_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id, vendor string, amount float64, categoryID string) LogFields {
	f[FieldExpenseID] = id
	f[FieldVendor] = vendor
	f[FieldAmount] = amount
	f[FieldCategoryID] = categoryID
	return f
}

// WithDuration adds the elapsed time in milliseconds and the outcome.
func (f LogFields) WithDuration(durationMs int64, success bool) LogFields {
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
