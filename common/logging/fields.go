package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldComponent  = "component"
	FieldSourceType = "source_type"
	FieldTenant     = "tenant"
	FieldSubject    = "subject"
	FieldError      = "error"
	FieldCount      = "count"
	FieldClassUID   = "class_uid"
	FieldRuleFile   = "rule_file"
)

// Component returns a slog attribute for the pipeline component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// SourceType returns a slog attribute for the event source type.
func SourceType(st string) slog.Attr {
	return slog.String(FieldSourceType, st)
}

// Tenant returns a slog attribute for the event tenant.
func Tenant(t string) slog.Attr {
	return slog.String(FieldTenant, t)
}

// Subject returns a slog attribute for a message bus subject.
func Subject(s string) slog.Attr {
	return slog.String(FieldSubject, s)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Count returns a slog attribute for an item count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// ClassUID returns a slog attribute for an event class identifier.
func ClassUID(uid int) slog.Attr {
	return slog.Int(FieldClassUID, uid)
}

// RuleFile returns a slog attribute for a rule document path.
func RuleFile(path string) slog.Attr {
	return slog.String(FieldRuleFile, path)
}
