package ui

import "sync"

// Recorder keeps every update it receives. It is meant for tests and for
// non-interactive runs that want a trace of progress.
type Recorder struct {
	mu       sync.Mutex
	Statuses []string
	Attempts []int
	Logs     []string
	Dones    int
}

func (r *Recorder) UpdateStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statuses = append(r.Statuses, status)
}

func (r *Recorder) UpdateAttempt(attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts = append(r.Attempts, attempt)
}

func (r *Recorder) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Logs = append(r.Logs, msg)
}

func (r *Recorder) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dones++
}
