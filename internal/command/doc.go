// Package command is the outbound boundary for device control.
//
// Every decided state transition, whether from load shedding, schedule
// reconciliation, or a manual request, flows through Publisher. It
// publishes a structured {"command": "ON"|"OFF"} message to the
// device's control topic and broadcasts a status-updated event for the
// dashboard. Sends are fire-and-forget; failures are logged, never
// propagated.
package command
