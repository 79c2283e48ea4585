package domain

// Task is one patch-generation problem instance as listed by the backend
type Task struct {
	ID      string `json:"id"`
	Project string `json:"project"`
	Status  string `json:"status"`
}

// TaskDetail holds the lazily-fetched detail for a selected task
type TaskDetail struct {
	InstanceID       string            `json:"instance_id"`
	Repo             string            `json:"repo"`
	ProblemStatement string            `json:"problem_statement"`
	BaseCommit       string            `json:"base_commit"`
	DocChanges       string            `json:"doc_changes,omitempty"`
	Augmentations    map[string]string `json:"augmentations,omitempty"`
}
