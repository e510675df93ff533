package unirun

// Default maximum frame size (1 MB). Hits are small, so this is generous.
const DefaultMaxFrame int = 1_048_576

// Hard limit on frame size (16 MB) - prevents DoS
const MaxFrameHardLimit int = 16_777_216

// Limits bounds the size of frames read and written on a connection
type Limits struct {
	MaxFrame int `yaml:"max_frame"`
}

// DefaultLimits returns the default frame limits
func DefaultLimits() Limits {
	return Limits{
		MaxFrame: DefaultMaxFrame,
	}
}

// Effective clamps the limits to the hard limit and fills in defaults
func (l Limits) Effective() Limits {
	if l.MaxFrame <= 0 {
		l.MaxFrame = DefaultMaxFrame
	}
	if l.MaxFrame > MaxFrameHardLimit {
		l.MaxFrame = MaxFrameHardLimit
	}
	return l
}
