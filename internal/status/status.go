package status

type Status string

const (
	PENDING  = Status("PENDING")
	QUEUED   = Status("QUEUED")
	RUNNING  = Status("RUNNING")
	SUCCESS  = Status("SUCCESS")
	FAILED   = Status("FAILED")
	CANCELED = Status("CANCELED")
	SKIPPED  = Status("SKIPPED")
	UNKNOWN  = Status("UNKNOWN")
)

func IsFinal(status Status) bool {
	return status == SUCCESS ||
		status == FAILED ||
		status == CANCELED ||
		status == SKIPPED
}

// Outcome maps a final status to the word the notification webhook
// receives.
func (status Status) Outcome() string {
	if status == SUCCESS {
		return "success"
	}

	return "failure"
}
