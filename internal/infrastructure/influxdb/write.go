package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// emit queues a point on the batched write API. Silently dropped when
// the mirror is down; SQLite remains the source of truth, so a missing
// point only leaves a gap in the charts.
func (c *Client) emit(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}

// WriteUsageSample mirrors one telemetry sample into the usage
// measurement, tagged by device. Delta is the consumption in kWh
// attributed to this sample; energy is the device's cumulative
// counter.
func (c *Client) WriteUsageSample(deviceID string, volt, ampere, watt, energy, delta float64, recordedAt time.Time) {
	c.emit("usage",
		map[string]string{"device_id": deviceID},
		map[string]any{
			"volt":   volt,
			"ampere": ampere,
			"watt":   watt,
			"energy": energy,
			"delta":  delta,
		},
		recordedAt)
}

// WriteEnergyTotal records the running consumption for the active
// budget window. The budget field is omitted when no limit is
// configured, so dashboards can tell "no budget" from "zero budget".
func (c *Client) WriteEnergyTotal(totalKWh, budgetKWh, percent float64) {
	fields := map[string]any{
		"total_kwh": totalKWh,
		"percent":   percent,
	}
	if budgetKWh > 0 {
		fields["budget_kwh"] = budgetKWh
	}
	c.emit("energy_total", map[string]string{}, fields, time.Now())
}

// WriteShedEvent records a load-shedding action: which device was cut,
// its tier, and the budget percentage that triggered it.
func (c *Client) WriteShedEvent(deviceID string, tier string, percent float64) {
	c.emit("shed_events",
		map[string]string{"device_id": deviceID, "tier": tier},
		map[string]any{"percent": percent},
		time.Now())
}
