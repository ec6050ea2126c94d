// Package logfields provides canonical log field names and helpers for structured logging in the scheduler core.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
// These are used for structured logging with slog.
const (
	KeyScheduleID    = "schedule_id"
	KeyFrequencyKind = "frequency_kind"
	KeyTimezone      = "timezone"
	KeyAnchor        = "anchor"
	KeyDeadline      = "deadline"
	KeyPriority      = "priority"
	KeyState         = "state"
	KeyCategory      = "category"
	KeySeverity      = "severity"
	KeyCronExpr      = "cron_expr"
	KeyDurationMS    = "duration_ms"
	KeyQueueDepth    = "queue_depth"
	KeyError         = "error"
)

// ScheduleID returns a slog.Attr for the schedule ID.
//
// The following helpers return slog.Attr for common log fields, allowing composable structured logging.

func ScheduleID(id string) slog.Attr   { return slog.String(KeyScheduleID, id) }   // ScheduleID returns a slog.Attr for the schedule ID.
func FrequencyKind(k string) slog.Attr { return slog.String(KeyFrequencyKind, k) } // FrequencyKind returns a slog.Attr for a frequency's tag (Hourly, Monthly, Custom, ...).
func Timezone(zone string) slog.Attr   { return slog.String(KeyTimezone, zone) }   // Timezone returns a slog.Attr for an IANA zone name.
func Priority(p string) slog.Attr      { return slog.String(KeyPriority, p) }      // Priority returns a slog.Attr for a schedule's priority.
func State(s string) slog.Attr         { return slog.String(KeyState, s) }         // State returns a slog.Attr for the dispatcher's lifecycle state.
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }      // Category returns a slog.Attr for a classified error's category.
func Severity(s string) slog.Attr      { return slog.String(KeySeverity, s) }      // Severity returns a slog.Attr for a classified error's severity.
func CronExpr(expr string) slog.Attr   { return slog.String(KeyCronExpr, expr) }   // CronExpr returns a slog.Attr for a cron expression under evaluation.
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }  // DurationMS returns a slog.Attr for a duration measured in milliseconds.

// Anchor returns a slog.Attr for a schedule's anchor instant, in milliseconds since the epoch.
func Anchor(ms int64) slog.Attr { return slog.Int64(KeyAnchor, ms) }

// Deadline returns a slog.Attr for a schedule's next firing instant, in milliseconds since the epoch.
func Deadline(ms int64) slog.Attr { return slog.Int64(KeyDeadline, ms) }

// QueueDepth returns a slog.Attr for the number of schedules currently queued.
func QueueDepth(n int) slog.Attr { return slog.Int(KeyQueueDepth, n) }

// Error returns a slog.Attr for an error, or an empty string if nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
