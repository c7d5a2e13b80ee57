package server

import "sync"

// Metrics holds process-local counters surfaced through /health.
type Metrics struct {
	mu sync.Mutex

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64

	loginSuccessTotal int64
	loginFailureTotal int64

	uploadsTotal       int64
	uploadBytesTotal   int64
	uploadErrorsTotal  int64
	downloadsTotal     int64
	downloadBytesTotal int64
}

func (m *Metrics) RecordRequest(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	switch {
	case status >= 500:
		m.requestErrors5xx++
	case status >= 400:
		m.requestErrors4xx++
	}
}

func (m *Metrics) RecordLoginSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginSuccessTotal++
}

func (m *Metrics) RecordLoginFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFailureTotal++
}

func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

// Snapshot returns a copy of all counters for the health endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"requests_total":       m.requestsTotal,
		"request_errors_4xx":   m.requestErrors4xx,
		"request_errors_5xx":   m.requestErrors5xx,
		"login_success_total":  m.loginSuccessTotal,
		"login_failure_total":  m.loginFailureTotal,
		"uploads_total":        m.uploadsTotal,
		"upload_bytes_total":   m.uploadBytesTotal,
		"upload_errors_total":  m.uploadErrorsTotal,
		"downloads_total":      m.downloadsTotal,
		"download_bytes_total": m.downloadBytesTotal,
	}
}
