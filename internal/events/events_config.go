package events

// ConfigReloadEvent is the payload for ConfigReloaded and ConfigReloadFailed.
type ConfigReloadEvent struct {
	// ChangedSections lists the top-level config sections that differ from
	// the previously loaded configuration.
	ChangedSections []string

	// ReloadableChanges is true when every changed section can be applied
	// without restarting the daemon.
	ReloadableChanges bool

	// Error carries the failure message for ConfigReloadFailed.
	Error string
}

// NewConfigReloaded builds a ConfigReloaded event.
func NewConfigReloaded(changedSections []string, reloadable bool) Event {
	return NewEvent(ConfigReloaded, ConfigReloadEvent{
		ChangedSections:   changedSections,
		ReloadableChanges: reloadable,
	})
}

// NewConfigReloadFailed builds a ConfigReloadFailed event.
func NewConfigReloadFailed(err error) Event {
	return NewEvent(ConfigReloadFailed, ConfigReloadEvent{
		Error: errorString(err),
	})
}
