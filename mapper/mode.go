package mapper

import "fmt"

// MappingMode selects which map representation the static pipeline uses and
// whether a second, masked pipeline runs beside it.
type MappingMode int

// The five supported mapping modes.
const (
	// StaticSdf maps static scenery into a signed-distance layer only.
	StaticSdf MappingMode = iota
	// StaticOccupancy maps static scenery into an occupancy layer only.
	StaticOccupancy
	// Dynamic maps static scenery into a signed-distance layer plus a
	// freespace layer, and detected dynamic objects into a second
	// occupancy layer.
	Dynamic
	// HumanWithStaticSdf maps static scenery into a signed-distance layer
	// and mask-segmented humans into a second occupancy layer.
	HumanWithStaticSdf
	// HumanWithStaticOccupancy maps static scenery into an occupancy layer
	// and mask-segmented humans into a second occupancy layer.
	HumanWithStaticOccupancy
)

// String returns the mode's stable name. An out-of-range value panics: it
// can only come from a build or version mismatch, never from runtime data.
func (m MappingMode) String() string {
	switch m {
	case StaticSdf:
		return "static_sdf"
	case StaticOccupancy:
		return "static_occupancy"
	case Dynamic:
		return "dynamic"
	case HumanWithStaticSdf:
		return "human_with_static_sdf"
	case HumanWithStaticOccupancy:
		return "human_with_static_occupancy"
	default:
		panic(fmt.Sprintf("unknown mapping mode %d", int(m)))
	}
}

// IsHumanMapping reports whether the masked pipeline maps humans.
func (m MappingMode) IsHumanMapping() bool {
	return m == HumanWithStaticSdf || m == HumanWithStaticOccupancy
}

// IsDynamicMapping reports whether the masked pipeline maps detected
// dynamic objects.
func (m MappingMode) IsDynamicMapping() bool {
	return m == Dynamic
}

// IsUsingBothMappers reports whether a masked pipeline exists at all.
func (m MappingMode) IsUsingBothMappers() bool {
	return m.IsHumanMapping() || m.IsDynamicMapping()
}

// IsStaticOccupancy reports whether the static pipeline uses an occupancy
// layer rather than a signed-distance layer.
func (m MappingMode) IsStaticOccupancy() bool {
	return m == StaticOccupancy || m == HumanWithStaticOccupancy
}
