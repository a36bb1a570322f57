package audithook

// Audit event actions. Each constant corresponds to one lifecycle status
// and becomes the Action field of the audit event.
const (
	ActionDispatched = "action.dispatched"
	ActionSuccessful = "action.successful"
	ActionErrored    = "action.errored"
	ActionCanceled   = "action.canceled"
)

// CategoryAction groups every audit event this hook emits.
const CategoryAction = "capture.action"

// ResourceAction is the Resource field of every audit event.
const ResourceAction = "action"

// AllActions returns every action this hook can emit.
func AllActions() []string {
	return []string{
		ActionDispatched,
		ActionSuccessful,
		ActionErrored,
		ActionCanceled,
	}
}
