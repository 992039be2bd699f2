package authcore

import (
	"time"

	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
)

const (
	MetricRegisterSuccess      MetricID = internalmetrics.RegisterSuccess
	MetricRegisterDuplicate    MetricID = internalmetrics.RegisterDuplicate
	MetricRegisterInvalid      MetricID = internalmetrics.RegisterInvalid
	MetricLoginSuccess         MetricID = internalmetrics.LoginSuccess
	MetricLoginFailure         MetricID = internalmetrics.LoginFailure
	MetricRefreshSuccess       MetricID = internalmetrics.RefreshSuccess
	MetricRefreshFailure       MetricID = internalmetrics.RefreshFailure
	MetricTokenRejected        MetricID = internalmetrics.TokenRejected
	MetricLogout               MetricID = internalmetrics.Logout
	MetricDeactivate           MetricID = internalmetrics.Deactivate
	MetricIdentityUpdated      MetricID = internalmetrics.IdentityUpdated
	MetricPasswordHashUpgraded MetricID = internalmetrics.PasswordHashUpgraded
	// MetricHashLatency is a histogram of password hash and verify durations.
	MetricHashLatency MetricID = internalmetrics.HashLatency
)

// MetricName returns the stable snake_case name of id, or "" for unknown ids.
func MetricName(id MetricID) string {
	return metricNames[id]
}

// MetricIDs returns every defined metric id in order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, internalmetrics.Count)
	for i := 0; i < internalmetrics.Count; i++ {
		out = append(out, MetricID(i))
	}
	return out
}

// IsHistogram reports whether id is a latency histogram rather than a counter.
func IsHistogram(id MetricID) bool {
	return internalmetrics.IsHistogram(id)
}

var metricNames = map[MetricID]string{
	MetricRegisterSuccess:      "register_success",
	MetricRegisterDuplicate:    "register_duplicate",
	MetricRegisterInvalid:      "register_invalid",
	MetricLoginSuccess:         "login_success",
	MetricLoginFailure:         "login_failure",
	MetricRefreshSuccess:       "refresh_success",
	MetricRefreshFailure:       "refresh_failure",
	MetricTokenRejected:        "token_rejected",
	MetricLogout:               "logout",
	MetricDeactivate:           "deactivate",
	MetricIdentityUpdated:      "identity_updated",
	MetricPasswordHashUpgraded: "password_hash_upgraded",
	MetricHashLatency:          "password_hash_latency",
}

// HashLatencyBuckets returns the inclusive upper bounds of the hash latency histogram
// buckets. The final bucket, not listed, is unbounded.
func HashLatencyBuckets() []time.Duration {
	return append([]time.Duration(nil), internalmetrics.BucketUpperBounds[:]...)
}
