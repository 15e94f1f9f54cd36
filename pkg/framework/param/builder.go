package param

// Builder provides a fluent API for creating parameters
type Builder struct {
	param        *Parameter
	plainDefault float64
	hasDefault   bool
}

// New creates a new parameter builder
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Min:       0,
			Max:       1,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the short name
func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value (in plain range, not normalized).
// Resolved at Build time so it can be given before or after Range.
func (b *Builder) Default(value float64) *Builder {
	b.plainDefault = value
	b.hasDefault = true
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Flags sets parameter flags
func (b *Builder) Flags(flags uint32) *Builder {
	b.param.Flags = flags
	return b
}

// Toggle creates a boolean parameter
func (b *Builder) Toggle() *Builder {
	b.param.Min = 0
	b.param.Max = 1
	b.param.StepCount = 1
	b.param.formatFunc = OnOffFormatter
	b.param.parseFunc = OnOffParser
	return b
}

// Integer creates a parameter stepped on every whole number in [min, max]
func (b *Builder) Integer(min, max int) *Builder {
	b.param.Min = float64(min)
	b.param.Max = float64(max)
	b.param.StepCount = int32(max - min)
	return b
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the configured parameter
func (b *Builder) Build() *Parameter {
	if b.hasDefault {
		b.param.DefaultValue = b.param.Normalize(b.plainDefault)
	}
	b.param.Reset()
	return b.param
}
