package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
)

const namespace = "authcore"

type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var counterHelp = map[authcore.MetricID]string{
	authcore.MetricRegisterSuccess:      "Successful registrations.",
	authcore.MetricRegisterDuplicate:    "Registrations rejected because the email is taken.",
	authcore.MetricRegisterInvalid:      "Registrations rejected by credential validation.",
	authcore.MetricLoginSuccess:         "Successful logins.",
	authcore.MetricLoginFailure:         "Failed logins.",
	authcore.MetricRefreshSuccess:       "Successful refresh token exchanges.",
	authcore.MetricRefreshFailure:       "Rejected refresh token exchanges.",
	authcore.MetricTokenRejected:        "Access tokens rejected by validation.",
	authcore.MetricLogout:               "Logouts.",
	authcore.MetricDeactivate:           "Identity deactivations.",
	authcore.MetricIdentityUpdated:      "Identity profile updates.",
	authcore.MetricPasswordHashUpgraded: "Password hashes re-computed with current parameters at login.",
}

// CounterDefs lists every engine counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists every engine histogram.
var HistogramDefs = []HistogramDef{
	{
		ID:   authcore.MetricHashLatency,
		Name: namespace + "_" + authcore.MetricName(authcore.MetricHashLatency) + "_seconds",
		Help: "Password hash and verify latency.",
	},
}

// AuditDroppedName is the counter for audit events lost to a full buffer.
const AuditDroppedName = namespace + "_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

// UpperBounds are the histogram bucket bounds in seconds, without +Inf.
var UpperBounds = buildUpperBounds()

// BucketLabels are the Prometheus "le" labels for every bucket, ending with +Inf.
var BucketLabels = buildBucketLabels()

// BucketSuffixes are BucketLabels made safe for metric names.
var BucketSuffixes = buildBucketSuffixes()

func buildCounterDefs() []CounterDef {
	var defs []CounterDef
	for _, id := range authcore.MetricIDs() {
		if authcore.IsHistogram(id) {
			continue
		}
		defs = append(defs, CounterDef{
			ID:   id,
			Name: namespace + "_" + authcore.MetricName(id) + "_total",
			Help: counterHelp[id],
		})
	}
	return defs
}

func buildUpperBounds() []float64 {
	buckets := authcore.HashLatencyBuckets()
	out := make([]float64, len(buckets))
	for i, d := range buckets {
		out[i] = d.Seconds()
	}
	return out
}

func buildBucketLabels() []string {
	out := make([]string, 0, len(UpperBounds)+1)
	for _, b := range UpperBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

func buildBucketSuffixes() []string {
	out := make([]string, len(BucketLabels))
	for i, l := range BucketLabels {
		if l == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(l, ".", "_")
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals. Missing buckets
// count as zero, so a disabled histogram yields all zeros.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(BucketLabels))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
