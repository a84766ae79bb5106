package notification

// TypePolicy decides whether a message type may be enqueued and claimed.
// It is injected into the Service; there is no process-wide registry.
type TypePolicy interface {
	Allowed(messageType string) bool
}

// AllowAll accepts every message type.
type AllowAll struct{}

// Allowed implements TypePolicy.
func (AllowAll) Allowed(string) bool { return true }

// AllowList accepts only the listed types.
type AllowList struct {
	types map[string]struct{}
}

// NewAllowList builds a policy from the enabled types. An empty list yields
// a policy that accepts everything, matching an unset notifications.enabled_types.
func NewAllowList(types []string) TypePolicy {
	if len(types) == 0 {
		return AllowAll{}
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return &AllowList{types: set}
}

// Allowed implements TypePolicy.
func (a *AllowList) Allowed(messageType string) bool {
	_, ok := a.types[messageType]
	return ok
}
