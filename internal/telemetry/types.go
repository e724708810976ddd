package telemetry

import "onionbot/internal/classifier"

// RecordTypeMeta is the "type" of every meta record.
const RecordTypeMeta = "meta"

// ThermalSnapshot is the thermal camera reading at capture time. Nil fields
// are emitted as JSON null.
type ThermalSnapshot struct {
	Temperature    *float64  `json:"temperature"`
	ThermalHistory []float64 `json:"thermal_history"`
}

// ControlSnapshot is the state of the hob control loop at capture time.
type ControlSnapshot struct {
	ServoSetpoint        *float64  `json:"servo_setpoint"`
	ServoSetpointHistory []float64 `json:"servo_setpoint_history"`
	ServoAchieved        *float64  `json:"servo_achieved"`
	ServoAchievedHistory []float64 `json:"servo_achieved_history"`
	TemperatureTarget    *float64  `json:"temperature_target"`
	PIDEnabled           bool      `json:"pid_enabled"`
	PCoefficient         *float64  `json:"p_coefficient"`
	ICoefficient         *float64  `json:"i_coefficient"`
	DCoefficient         *float64  `json:"d_coefficient"`
	PComponent           *float64  `json:"p_component"`
	IComponent           *float64  `json:"i_component"`
	DComponent           *float64  `json:"d_component"`
}

// MetaRecord is the versioned, session scoped telemetry record.
type MetaRecord struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes MetaAttributes `json:"attributes"`
}

// MetaAttributes carries the record payload. Field names are part of the
// portal contract.
type MetaAttributes struct {
	SessionName     string   `json:"session_name"`
	Interval        *float64 `json:"interval"`
	ActiveLabel     string   `json:"active_label"`
	MeasurementID   int      `json:"measurement_id"`
	TimeStamp       string   `json:"time_stamp"`
	CameraFilepath  *string  `json:"camera_filepath"`
	ThermalFilepath *string  `json:"thermal_filepath"`

	ThermalSnapshot
	ControlSnapshot

	Classification classifier.Aggregation `json:"classification,omitempty"`
}

// Float returns a pointer to v, for building snapshots.
func Float(v float64) *float64 {
	return &v
}
