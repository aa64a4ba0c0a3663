package errors

// Convenience functions for common error patterns

// Config errors

func ConfigInvalid(path string, cause error) *BuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

func ConfigRequired(field string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Pipeline errors

func DiscoveryError(root string, cause error) *BuildError {
	return Wrap(cause, CategoryDiscovery, SeverityFatal, "package discovery failed").
		WithContext("root", root)
}

// PhaseFailed reports the first unit failure of a pipeline phase.
func PhaseFailed(category ErrorCategory, phase, unit string, cause error) *BuildError {
	return Wrap(cause, category, SeverityError, "build unit failed").
		WithContext("phase", phase).
		WithContext("unit", unit)
}

func WorkspaceError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func Canceled(cause error) *BuildError {
	return Wrap(cause, CategoryRuntime, SeverityFatal, "build canceled")
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
