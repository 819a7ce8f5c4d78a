package domain

// PresetKey identifies one of the fixed prompt templates.
type PresetKey string

const (
	PresetBusiness  PresetKey = "business"
	PresetClown     PresetKey = "clown"
	PresetUFC       PresetKey = "ufc"
	PresetSuperhero PresetKey = "superhero"
)

// PresetKeys lists every preset in keyboard order.
var PresetKeys = []PresetKey{PresetBusiness, PresetClown, PresetUFC, PresetSuperhero}
