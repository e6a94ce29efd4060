package events

// Platform event types. The "system." prefix routes these to the system topic.
const (
	TypeModuleEnabled  = "system.module.enabled"
	TypeModuleDisabled = "system.module.disabled"
)

// ModuleEnabled records that a platform module was switched on for a tenant.
type ModuleEnabled struct {
	ModuleSlug string `json:"module_slug"`
}

func (e ModuleEnabled) EventType() string { return TypeModuleEnabled }

func (e ModuleEnabled) Validate() error {
	if err := validateNotEmpty("module_slug", e.ModuleSlug); err != nil {
		return err
	}

	return validateMaxLength("module_slug", e.ModuleSlug, MaxKindLen)
}

// ModuleDisabled records that a platform module was switched off for a tenant.
type ModuleDisabled struct {
	ModuleSlug string `json:"module_slug"`
}

func (e ModuleDisabled) EventType() string { return TypeModuleDisabled }

func (e ModuleDisabled) Validate() error {
	if err := validateNotEmpty("module_slug", e.ModuleSlug); err != nil {
		return err
	}

	return validateMaxLength("module_slug", e.ModuleSlug, MaxKindLen)
}
