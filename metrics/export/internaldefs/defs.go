package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events the async dispatcher dropped.
const (
	AuditDroppedName = "authcore_audit_dropped_total"
	auditDroppedHelp = "Audit events the async dispatcher could not deliver."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Accounts registered."},
	{ID: authcore.MetricRegisterFailure, Name: "authcore_register_failure_total", Help: "Rejected registrations."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Logins rejected for a wrong password."},
	{ID: authcore.MetricLoginNotFound, Name: "authcore_login_not_found_total", Help: "Logins for unknown emails."},
	{ID: authcore.MetricLoginLocked, Name: "authcore_login_locked_total", Help: "Logins rejected because the account is locked."},
	{ID: authcore.MetricLoginInactive, Name: "authcore_login_inactive_total", Help: "Logins rejected because the account is inactive."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Accounts locked after too many failures."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout calls."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Forgot-password requests."},
	{ID: authcore.MetricPasswordResetEmailFailure, Name: "authcore_password_reset_email_failure_total", Help: "Reset emails that could not be delivered."},
	{ID: authcore.MetricPasswordResetConfirmSuccess, Name: "authcore_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authcore.MetricPasswordResetConfirmFailure, Name: "authcore_password_reset_confirm_failure_total", Help: "Rejected password resets."},
	{ID: authcore.MetricPasswordRehash, Name: "authcore_password_rehash_total", Help: "Digests upgraded on login."},
	{ID: authcore.MetricAuditFailure, Name: "authcore_audit_failure_total", Help: "Audit events that could not be stored."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricLoginLatency, Name: "authcore_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the Prometheus le labels, matching
// authcore.HistogramBounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// Source is read once per scrape or collection.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Kind tells exporters how to encode a Family.
type Kind uint8

const (
	KindCounter Kind = iota
	KindHistogram
)

// Family is one exported series with the value read at collection time.
type Family struct {
	Name string
	Help string
	Kind Kind
	// Value holds a counter reading.
	Value uint64
	// Buckets holds cumulative histogram counts aligned with
	// HistogramBounds; the last entry is the sample count.
	Buckets [8]uint64
}

// Count is the histogram sample count.
func (f Family) Count() uint64 {
	return f.Buckets[len(f.Buckets)-1]
}

// Collect reads source and returns every family in a stable order:
// counters, histograms, then the audit drop counter. It returns nil when the
// engine has metrics disabled and no audit event was dropped.
func Collect(source Source) []Family {
	if source == nil {
		return nil
	}
	snapshot := source.MetricsSnapshot()
	dropped := source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return nil
	}

	out := make([]Family, 0, len(CounterDefs)+len(HistogramDefs)+1)
	for _, def := range CounterDefs {
		out = append(out, Family{Name: def.Name, Help: def.Help, Kind: KindCounter, Value: snapshot.Counters[def.ID]})
	}
	for _, def := range HistogramDefs {
		out = append(out, Family{
			Name:    def.Name,
			Help:    def.Help,
			Kind:    KindHistogram,
			Buckets: cumulative(snapshot.Histograms[def.ID]),
		})
	}
	return append(out, Family{Name: AuditDroppedName, Help: auditDroppedHelp, Kind: KindCounter, Value: dropped})
}

// cumulative turns per-bucket counts into running totals over eight buckets.
func cumulative(raw []uint64) [8]uint64 {
	var (
		out     [8]uint64
		running uint64
	)
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
