package telemetry

import (
	"errors"
	"strings"
	"testing"
)

const validRecord = `{"type":"meta","id":"sess1_3_2024-01-02_03-04-05-000006","attributes":{
"session_name":"sess1","interval":1.2,"active_label":"Raw","measurement_id":3,
"time_stamp":"2024-01-02_03-04-05-000006",
"camera_filepath":"https://storage.googleapis.com/onionbucket/logs/a.jpg","thermal_filepath":null,
"temperature":null,"thermal_history":null,"servo_setpoint":null,"servo_setpoint_history":[],
"servo_achieved":null,"servo_achieved_history":null,"temperature_target":null,"pid_enabled":false,
"p_coefficient":null,"i_coefficient":null,"d_coefficient":null,
"p_component":null,"i_component":null,"d_component":null,
"classification":{"pasta":{"label":"Boiling","confidence":"0.83984375"}}}}`

func TestValidateRecordAcceptsValid(t *testing.T) {
	if err := ValidateRecord([]byte(validRecord)); err != nil {
		t.Fatalf("ValidateRecord: %v", err)
	}
}

func TestValidateRecordRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(string) string
		want   string
	}{
		{"missing attribute", func(s string) string { return strings.Replace(s, `"pid_enabled":false,`, "", 1) }, "pid_enabled"},
		{"bad timestamp", func(s string) string {
			return strings.Replace(s, `"time_stamp":"2024-01-02_03-04-05-000006"`, `"time_stamp":"yesterday"`, 1)
		}, "/attributes/time_stamp"},
		{"non numeric confidence", func(s string) string { return strings.Replace(s, `"0.83984375"`, `"high"`, 1) }, "confidence"},
		{"wrong type", func(s string) string { return strings.Replace(s, `"type":"meta"`, `"type":"labels"`, 1) }, "/type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRecord([]byte(tc.mutate(validRecord)))
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestValidateRecordRejectsInvalidJSON(t *testing.T) {
	err := ValidateRecord([]byte("{"))
	var schemaErr *SchemaError
	if err == nil || errors.As(err, &schemaErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
