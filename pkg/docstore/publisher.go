// Package docstore publishes approved deliverables and operational
// snapshots to external document stores: the notes platform, the
// file-storage platform (backups), and the code-hosting platform (state
// snapshots). Publishing is fail-open: the datastore keeps the canonical
// copy and a failed publish never blocks a mission.
package docstore

import "context"

// Deliverable is what gets published when a step is approved.
type Deliverable struct {
	Title     string
	Content   string
	TeamID    string
	AgentName string
	MissionID string
	StepID    string
}

// PublishResult identifies the published document.
type PublishResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Publisher is the interface every document store exposes.
type Publisher interface {
	PublishDeliverable(ctx context.Context, d Deliverable) (*PublishResult, error)
}
