package recon

// OverrideResult records the manual-override stage.
type OverrideResult struct {
	Applied     bool
	Mode        OverrideMode
	Description string
	Final       Money
}

// ApplyOverride resolves a manual override against the calculated
// amount. Replace substitutes the amount wholesale; adjustment adds a
// signed delta. An override with an unknown mode is a configuration
// error: guessing between the two silently misstates the bill.
func ApplyOverride(calculated Money, o *ManualOverride) (OverrideResult, error) {
	if o == nil {
		return OverrideResult{Final: calculated}, nil
	}
	switch o.Mode {
	case OverrideReplace:
		return OverrideResult{Applied: true, Mode: o.Mode, Description: o.Description, Final: o.Amount}, nil
	case OverrideAdjustment:
		return OverrideResult{Applied: true, Mode: o.Mode, Description: o.Description, Final: calculated.Add(o.Amount)}, nil
	default:
		return OverrideResult{}, &ConfigurationError{Field: "override_mode", Tenant: o.Tenant,
			Reason: "unknown mode " + string(o.Mode)}
	}
}
