// Package telemetry ingests device readings from the broker and turns
// them into append-only usage samples.
//
// The ingestion Handler is the single entry point for all device
// telemetry. For each valid message it:
//
//  1. Resolves the topic to a registered device
//  2. Parses the payload (volt, ampere, watt, cumulative energy)
//  3. Derives the consumption delta from the previous sample
//  4. Persists a UsageSample
//  5. Mirrors the sample to time-series storage (optional)
//  6. Broadcasts a live reading to dashboard observers
//  7. Hands off to energy accounting for budget evaluation
//
// Unregistered topics, command echoes, and malformed payloads are
// discarded with a log entry; a bad message from one device never
// affects processing for others.
//
// # Delta Derivation
//
// Devices report a cumulative energy counter. The delta recorded with
// each sample is the increase since the device's previous sample,
// floored at zero so counter resets never produce negative consumption.
package telemetry
