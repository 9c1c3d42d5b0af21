package runtime

import "time"

// Reliability controls whether delivery is retried.
type Reliability int

const (
	ReliabilityReliable Reliability = iota
	ReliabilityBestEffort
)

// Durability controls whether late-joining subscribers see prior samples.
type Durability int

const (
	DurabilityVolatile Durability = iota
	DurabilityTransientLocal
)

// History controls how many unreceived samples the middleware retains.
type History int

const (
	HistoryKeepLast History = iota
	HistoryKeepAll
)

// Liveliness controls how participant liveness is asserted.
type Liveliness int

const (
	LivelinessAutomatic Liveliness = iota
	LivelinessManual
)

// Profile is a QoS configuration, negotiated with the middleware when an
// endpoint is created. The zero value is not a valid profile; use
// DefaultProfile or one of the other named presets.
type Profile struct {
	Reliability     Reliability
	Durability      Durability
	History         History
	Depth           int
	Deadline        time.Duration // 0 means none
	Lifespan        time.Duration // 0 means none
	Liveliness      Liveliness
	LivelinessLease time.Duration // 0 means none
}

// DefaultProfile is the "default" preset: reliable, volatile, keep-last(10).
func DefaultProfile() Profile {
	return Profile{
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
		History:     HistoryKeepLast,
		Depth:       10,
		Liveliness:  LivelinessAutomatic,
	}
}

// SensorDataProfile is tuned for high-rate, best-effort sensor streams:
// best-effort, volatile, keep-last(5).
func SensorDataProfile() Profile {
	p := DefaultProfile()
	p.Reliability = ReliabilityBestEffort
	p.Depth = 5
	return p
}

// ParameterProfile matches the "parameter" preset: reliable, volatile,
// keep-last(1000).
func ParameterProfile() Profile {
	p := DefaultProfile()
	p.Depth = 1000
	return p
}

// ServicesProfile matches the "services" preset: reliable, volatile,
// keep-last(10). Used by Server/Client by default.
func ServicesProfile() Profile {
	return DefaultProfile()
}

// ParameterEventsProfile matches the "parameter-events" preset: reliable,
// volatile, keep-last(1000).
func ParameterEventsProfile() Profile {
	return ParameterProfile()
}

// SystemDefaultProfile defers every field to the middleware's own default;
// represented here as the same shape as DefaultProfile since this library
// has no middleware-specific default to defer to.
func SystemDefaultProfile() Profile {
	return DefaultProfile()
}
