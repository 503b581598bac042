package telemetry

import (
	"errors"
	"testing"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *Reading
		wantErr error
	}{
		{
			name:    "valid sample",
			payload: `{"volt": 231.2, "ampere": 4.5, "watt": 1040.4, "energy": 12.345}`,
			want:    &Reading{Volt: 231.2, Ampere: 4.5, Watt: 1040.4, Energy: 12.345},
		},
		{
			name:    "zero values are valid",
			payload: `{"volt": 0, "ampere": 0, "watt": 0, "energy": 0}`,
			want:    &Reading{},
		},
		{
			name:    "extra fields ignored",
			payload: `{"volt": 230, "ampere": 1, "watt": 230, "energy": 5, "rssi": -67}`,
			want:    &Reading{Volt: 230, Ampere: 1, Watt: 230, Energy: 5},
		},
		{
			name:    "command echo",
			payload: `{"command": "OFF"}`,
			wantErr: ErrCommandEcho,
		},
		{
			name:    "command echo alongside readings",
			payload: `{"command": "ON", "volt": 230, "ampere": 1, "watt": 230, "energy": 5}`,
			wantErr: ErrCommandEcho,
		},
		{
			name:    "missing energy",
			payload: `{"volt": 230, "ampere": 1, "watt": 230}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "missing all fields",
			payload: `{}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "non-numeric field",
			payload: `{"volt": "high", "ampere": 1, "watt": 230, "energy": 5}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "invalid json",
			payload: `not json`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "empty payload",
			payload: ``,
			wantErr: ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReading([]byte(tt.payload))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseReading() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseReading() error = %v", err)
			}
			if *got != *tt.want {
				t.Errorf("ParseReading() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
