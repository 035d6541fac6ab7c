package scene

// TextureSlot names one optional material channel.
type TextureSlot int

const (
	SlotDiffuse TextureSlot = iota
	SlotNormal
	SlotSpecular

	slotCount
)

func (s TextureSlot) String() string {
	switch s {
	case SlotDiffuse:
		return "diffuse"
	case SlotNormal:
		return "normal"
	case SlotSpecular:
		return "specular"
	}
	return "unknown"
}

// Material is the importer's view of a surface: up to three texture names,
// each empty when the slot is unused. Names are keys into the scene's
// texture map, not file paths.
type Material struct {
	Name     string
	Textures [slotCount]string
}

func (m Material) Texture(slot TextureSlot) string {
	return m.Textures[slot]
}

// MergeRedundantMaterials collapses materials with identical texture sets
// and rewrites every mesh's MaterialIndex. Indices that are already out of
// range are left untouched so validation can report them.
func MergeRedundantMaterials(materials []Material, meshes []*Mesh) []Material {
	merged := make([]Material, 0, len(materials))
	seen := make(map[[slotCount]string]int, len(materials))
	remap := make([]int, len(materials))

	for i, m := range materials {
		if j, ok := seen[m.Textures]; ok {
			remap[i] = j
			continue
		}
		seen[m.Textures] = len(merged)
		remap[i] = len(merged)
		merged = append(merged, m)
	}

	for _, mesh := range meshes {
		if mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(remap) {
			mesh.MaterialIndex = remap[mesh.MaterialIndex]
		}
	}
	return merged
}
