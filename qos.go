package safedrive

import "github.com/xbroquer/safe-drive/runtime"

// QoSProfile is this package's name for a QoS configuration (spec.md §6).
// It is a plain alias of runtime.Profile: QoS is negotiated with the
// middleware, so the type itself belongs on that side of the boundary; this
// alias lets application code spell it as safedrive.QoSProfile without
// importing the runtime package directly.
type QoSProfile = runtime.Profile

// DefaultQoS is the "default" preset: reliable, volatile, keep-last(10).
func DefaultQoS() QoSProfile { return runtime.DefaultProfile() }

// SensorDataQoS is the "sensor" preset: best-effort, volatile, keep-last(5).
func SensorDataQoS() QoSProfile { return runtime.SensorDataProfile() }

// ParameterQoS is the "parameter" preset: reliable, volatile, keep-last(1000).
func ParameterQoS() QoSProfile { return runtime.ParameterProfile() }

// ServicesQoS is the "services" preset, used by Server/Client by default.
func ServicesQoS() QoSProfile { return runtime.ServicesProfile() }

// ParameterEventsQoS is the "parameter-events" preset.
func ParameterEventsQoS() QoSProfile { return runtime.ParameterEventsProfile() }

// SystemDefaultQoS is the "system-default" preset.
func SystemDefaultQoS() QoSProfile { return runtime.SystemDefaultProfile() }

// resolveQoS implements the "optional QoS profile, named default if
// omitted" rule from spec.md §4.2 shared by every endpoint factory.
func resolveQoS(qos []QoSProfile) QoSProfile {
	if len(qos) > 0 {
		return qos[0]
	}
	return DefaultQoS()
}
