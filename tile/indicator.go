package tile

// An Indicator reflects the health of a tile's input link on an external
// display, typically the tile's status LED. Implementations live outside
// the core; the loops only ever signal transitions.
type Indicator interface {
	// ValidInput signals that the last upstream exchange produced a state.
	ValidInput()

	// InvalidInput signals that upstream bytes arrived but did not form a
	// usable response.
	InvalidInput()

	// OpenInput signals that upstream has been unreachable long enough to
	// fall back to the open-input state.
	OpenInput()
}

type nopIndicator struct{}

func (nopIndicator) ValidInput()   {}
func (nopIndicator) InvalidInput() {}
func (nopIndicator) OpenInput()    {}

// NopIndicator returns an indicator that discards all signals, for tiles
// without a display.
func NopIndicator() Indicator { return nopIndicator{} }
