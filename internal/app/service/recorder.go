package service

import "time"

// Recorder receives business events worth counting. The Prometheus
// collectors in internal/infra/prometheus implement it.
type Recorder interface {
	LinkAdded(platform string)
	LinkConflict()
	ReportGenerated(format string, rows int, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) LinkAdded(string)                           {}
func (nopRecorder) LinkConflict()                              {}
func (nopRecorder) ReportGenerated(string, int, time.Duration) {}
