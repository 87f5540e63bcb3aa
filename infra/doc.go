// Package infra contains technical adapters: the MQTT surfaces, metrics
// exporters and the SQLite store. These packages depend only on the
// interfaces defined in the core packages.
package infra
