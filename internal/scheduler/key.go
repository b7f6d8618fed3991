package scheduler

// DefaultGroup is used when a key is created without a group.
const DefaultGroup = "DEFAULT"

// JobKey identifies a job by name within a group.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a job key. An empty group becomes DefaultGroup.
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Name: name, Group: group}
}

// String returns "group.name".
func (k JobKey) String() string {
	return k.Group + "." + k.Name
}

// IsZero reports whether k has no name.
func (k JobKey) IsZero() bool {
	return k.Name == ""
}

// TriggerKey identifies a trigger by name within a group.
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a trigger key. An empty group becomes DefaultGroup.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Name: name, Group: group}
}

// String returns "group.name".
func (k TriggerKey) String() string {
	return k.Group + "." + k.Name
}

// IsZero reports whether k has no name.
func (k TriggerKey) IsZero() bool {
	return k.Name == ""
}
