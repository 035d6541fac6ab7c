package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
)

// objFace is an already-triangulated face (three vertex references).
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based position / UV / normal indices (-1 = absent)
}

type objObject struct {
	name    string
	matName string
	faces   []objFace
}

// LoadOBJ parses a Wavefront .obj file and returns one Mesh per object/group
// and material run. Companion .mtl files named by "mtllib" are read for
// texture references (map_Kd, map_Bump/norm, map_Ks); the map arguments are
// kept verbatim as texture names.
func LoadOBJ(path string, log core.Logger) (*Import, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w: %w", path, core.ErrResourceLoad, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)

	var positions []mgl32.Vec3
	var normals []mgl32.Vec3
	var uvs []mgl32.Vec2

	result := &Import{}
	matIndex := map[string]int{}

	var objects []objObject
	cur := &objObject{name: "default"}
	flush := func(name, mat string) {
		if len(cur.faces) > 0 {
			objects = append(objects, *cur)
		}
		cur = &objObject{name: name, matName: mat}
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v", "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w: %w", path, lineNo, core.ErrResourceLoad, err)
			}
			if fields[0] == "v" {
				positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
			} else {
				normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
			}

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w: %w", path, lineNo, core.ErrResourceLoad, err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], v[1]})

		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			flush(name, cur.matName)

		case "usemtl":
			if len(fields) > 1 {
				flush(cur.name, fields[1])
			}

		case "mtllib":
			for _, lib := range fields[1:] {
				mats, err := loadMTL(filepath.Join(dir, lib))
				if err != nil {
					return nil, err
				}
				for _, m := range mats {
					if _, ok := matIndex[m.Name]; ok {
						log.Warnf("obj: material %q redefined in %s", m.Name, lib)
						continue
					}
					matIndex[m.Name] = len(result.Materials)
					result.Materials = append(result.Materials, m)
				}
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%s:%d: %w: face with %d vertices",
					path, lineNo, core.ErrInvariant, len(fields)-1)
			}
			fverts := make([]faceVertex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				fv, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w: %w", path, lineNo, core.ErrResourceLoad, err)
				}
				fverts = append(fverts, fv)
			}
			// Fan triangulation: 0-1-2, 0-2-3, 0-3-4, ...
			for i := 1; i+1 < len(fverts); i++ {
				f0, f1, f2 := fverts[0], fverts[i], fverts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0.v, f1.v, f2.v},
					vtIdx: [3]int{f0.vt, f1.vt, f2.vt},
					vnIdx: [3]int{f0.vn, f1.vn, f2.vn},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w: %w", core.ErrResourceLoad, err)
	}
	flush("", "")

	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: no geometry found in %q", core.ErrResourceLoad, path)
	}

	for _, obj := range objects {
		mesh := buildMeshFromOBJ(obj.name, obj.faces, positions, normals, uvs)
		if obj.matName != "" {
			idx, ok := matIndex[obj.matName]
			if !ok {
				return nil, fmt.Errorf("%w: obj %q uses undefined material %q",
					core.ErrInvariant, path, obj.matName)
			}
			mesh.MaterialIndex = idx
		}
		result.Meshes = append(result.Meshes, mesh)
	}
	log.Debugf("obj: %s: %d meshes, %d materials", path, len(result.Meshes), len(result.Materials))
	return result, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

type faceVertex struct{ v, vt, vn int }

// parseFaceVertex parses one face vertex token: "v", "v/vt", "v//vn", "v/vt/vn".
// Returns 0-based indices (-1 if absent). OBJ is 1-based; negative indices
// count back from the current end of each pool.
func parseFaceVertex(tok string, nv, nvt, nvn int) (faceVertex, error) {
	parseIdx := func(s string, n int) (int, error) {
		if s == "" {
			return -1, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i = n + i
		} else {
			i--
		}
		if i < 0 || i >= n {
			return 0, fmt.Errorf("index %s out of range (%d defined)", s, n)
		}
		return i, nil
	}

	res := faceVertex{v: -1, vt: -1, vn: -1}
	parts := strings.Split(tok, "/")
	var err error
	if res.v, err = parseIdx(parts[0], nv); err != nil {
		return res, err
	}
	if res.v < 0 {
		return res, fmt.Errorf("face vertex %q has no position", tok)
	}
	if len(parts) > 1 {
		if res.vt, err = parseIdx(parts[1], nvt); err != nil {
			return res, err
		}
	}
	if len(parts) > 2 {
		if res.vn, err = parseIdx(parts[2], nvn); err != nil {
			return res, err
		}
	}
	return res, nil
}

// buildMeshFromOBJ converts parsed face data into a deduplicated Mesh.
func buildMeshFromOBJ(
	name string,
	faces []objFace,
	positions []mgl32.Vec3,
	normals []mgl32.Vec3,
	uvs []mgl32.Vec2,
) *Mesh {
	vertMap := map[faceVertex]uint32{}
	var vertices []core.Vertex
	var indices []uint32
	hasNormals := true

	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := faceVertex{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			if idx, ok := vertMap[k]; ok {
				indices = append(indices, idx)
				continue
			}
			v := core.Vertex{Position: positions[k.v]}
			if k.vt >= 0 {
				v.UV = uvs[k.vt]
			}
			if k.vn >= 0 {
				v.Normal = normals[k.vn]
			} else {
				hasNormals = false
			}
			idx := uint32(len(vertices))
			vertices = append(vertices, v)
			vertMap[k] = idx
			indices = append(indices, idx)
		}
	}

	m := CreateMeshFromData(name, vertices, indices)
	m.HasNormals = hasNormals
	return m
}

// loadMTL reads texture references from a material library. Colour and
// shininess statements are ignored: shading uses textures only.
func loadMTL(path string) ([]Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mtl %q: %w: %w", path, core.ErrResourceLoad, err)
	}
	defer f.Close()

	var mats []Material
	cur := -1

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		var slot TextureSlot
		switch strings.ToLower(fields[0]) {
		case "newmtl":
			if len(fields) > 1 {
				mats = append(mats, Material{Name: fields[1]})
				cur = len(mats) - 1
			}
			continue
		case "map_kd":
			slot = SlotDiffuse
		case "map_bump", "bump", "norm", "map_kn":
			slot = SlotNormal
		case "map_ks":
			slot = SlotSpecular
		default:
			continue
		}
		if cur < 0 || len(fields) < 2 {
			continue
		}
		// Options such as "-bm 1.0" precede the file name, which is last.
		mats[cur].Textures[slot] = fields[len(fields)-1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan mtl: %w: %w", core.ErrResourceLoad, err)
	}
	return mats, nil
}
