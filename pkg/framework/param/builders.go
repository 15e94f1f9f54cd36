package param

// Common parameter helpers

// AmountParameter creates a 0-1 amount shown as a percentage
func AmountParameter(id uint32, name string) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(0).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}

// SwingParameter creates a swing ratio parameter, 0.5 = straight
func SwingParameter(id uint32, name string) *Builder {
	return New(id, name).
		Range(0, 1).
		Default(0.5).
		Formatter(SwingFormatter, SwingParser)
}

// VelocityOffsetParameter creates a velocity offset parameter in MIDI velocity units
func VelocityOffsetParameter(id uint32, name string, max float64) *Builder {
	return New(id, name).
		Range(0, max).
		Unit("vel").
		Formatter(VelocityFormatter, VelocityParser)
}

// SwitchParameter creates an on/off parameter
func SwitchParameter(id uint32, name string) *Builder {
	return New(id, name).Toggle().Default(0)
}

// PortParameter creates a network port parameter
func PortParameter(id uint32, name string, min, max, defaultPort int) *Builder {
	return New(id, name).
		Integer(min, max).
		Default(float64(defaultPort)).
		Flags(0) // not automatable
}
