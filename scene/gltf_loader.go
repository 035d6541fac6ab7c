package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"snowscene/core"
)

// LoadGLTF opens a .glb or .gltf file. Material texture references are
// reported by name: the image URI as written in the file, else the image
// name, else "gltf_img_<n>". Images stored inside the file are decoded into
// Import.Embedded under that name; external images must be supplied through
// the scene's texture map.
func LoadGLTF(path string, log core.Logger) (*Import, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w: %w", path, core.ErrResourceLoad, err)
	}
	result := &Import{Embedded: map[string]*Texture{}}

	// Textures
	texNames := make([]string, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || *gt.Source >= len(doc.Images) {
			continue
		}
		img := doc.Images[*gt.Source]
		name := gltfImageName(img, *gt.Source)
		texNames[i] = name

		var raw []byte
		switch {
		case img.BufferView != nil:
			raw, err = modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		case img.IsEmbeddedResource():
			raw, err = img.MarshalData()
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("gltf image %d: %w: %w", *gt.Source, core.ErrResourceLoad, err)
		}
		if _, ok := result.Embedded[name]; ok {
			continue
		}
		tex, err := decodeImageBytes(name, raw)
		if err != nil {
			return nil, err
		}
		result.Embedded[name] = tex
		log.Debugf("gltf: embedded image %q %dx%d", name, tex.Width, tex.Height)
	}

	texName := func(idx int) (string, error) {
		if idx < 0 || idx >= len(texNames) {
			return "", fmt.Errorf("%w: gltf texture index %d out of range", core.ErrInvariant, idx)
		}
		return texNames[idx], nil
	}

	// Materials
	for i, gm := range doc.Materials {
		mat := Material{Name: gm.Name}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", i)
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			if mat.Textures[SlotDiffuse], err = texName(pbr.BaseColorTexture.Index); err != nil {
				return nil, err
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			if mat.Textures[SlotNormal], err = texName(*gm.NormalTexture.Index); err != nil {
				return nil, err
			}
		}
		result.Materials = append(result.Materials, mat)
	}

	// Mesh primitives, one slice per glTF mesh
	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				return nil, fmt.Errorf("gltf mesh %d prim %d: %w", mi, pi, err)
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	// Nodes
	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.Transform.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
		sc := gn.ScaleOrDefault()
		n.Transform.Scale = mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])}
		r := gn.RotationOrDefault() // [x, y, z, w]
		n.Transform.Rotation = mgl32.Quat{
			W: float32(r[3]),
			V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])},
		}

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			n.Meshes = meshPrims[*gn.Mesh]
		}
		nodes[i] = n
	}

	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
				hasParent[childIdx] = true
			}
		}
	}

	var roots []*Node
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				roots = append(roots, nodes[rootIdx])
			}
		}
	} else {
		for i, n := range nodes {
			if !hasParent[i] {
				roots = append(roots, n)
			}
		}
	}

	if len(roots) == 0 {
		// Meshes without nodes are imported in place.
		for _, prims := range meshPrims {
			result.Meshes = append(result.Meshes, prims...)
		}
	} else {
		result.Roots = roots
	}
	return result, nil
}

func gltfImageName(img *gltf.Image, idx int) string {
	switch {
	case img.URI != "" && !img.IsEmbeddedResource():
		return img.URI
	case img.Name != "":
		return img.Name
	}
	return fmt.Sprintf("gltf_img_%d", idx)
}

// loadGLTFPrimitive converts one glTF mesh primitive into a scene.Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: primitive mode %d is not a triangle list", core.ErrInvariant, prim.Mode)
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: no POSITION attribute", core.ErrResourceLoad)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w: %w", core.ErrResourceLoad, err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("normals: %w: %w", core.ErrResourceLoad, err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("texcoords: %w: %w", core.ErrResourceLoad, err)
		}
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{Position: mgl32.Vec3{p[0], p[1], p[2]}}
		if i < len(normals) {
			v.Normal = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}
		if i < len(uvs) {
			v.UV = mgl32.Vec2{uvs[i][0], uvs[i][1]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w: %w", core.ErrResourceLoad, err)
		}
	}

	m := CreateMeshFromData(name, verts, indices)
	m.HasNormals = len(normals) == len(positions)
	if prim.Material != nil {
		m.MaterialIndex = *prim.Material
	}
	return m, nil
}
