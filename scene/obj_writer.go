package scene

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteOBJ writes mesh as a single Wavefront object with positions, UVs and
// normals. When mtllib is non-empty the file references it and assigns
// material to the faces. Indices are written 1-based, one face per triangle.
func WriteOBJ(w io.Writer, mesh *Mesh, mtllib, material string) error {
	if err := mesh.CheckTriangles(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(mesh.Vertices), len(mesh.Indices)/3)
	if mtllib != "" {
		fmt.Fprintf(bw, "mtllib %s\n", mtllib)
	}
	fmt.Fprintf(bw, "o %s\n", mesh.Name)

	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", ff(v.Position.X()), ff(v.Position.Y()), ff(v.Position.Z()))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "vt %s %s\n", ff(v.UV.X()), ff(v.UV.Y()))
	}
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "vn %s %s %s\n", ff(v.Normal.X()), ff(v.Normal.Y()), ff(v.Normal.Z()))
	}

	if mtllib != "" && material != "" {
		fmt.Fprintf(bw, "usemtl %s\n", material)
	}
	for i := 0; i < len(mesh.Indices); i += 3 {
		a, b, c := mesh.Indices[i]+1, mesh.Indices[i+1]+1, mesh.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}

// WriteMTL writes a material library with the texture names of each
// material as map statements.
func WriteMTL(w io.Writer, materials []Material) error {
	bw := bufio.NewWriter(w)
	for i, m := range materials {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "newmtl %s\n", m.Name)
		if t := m.Texture(SlotDiffuse); t != "" {
			fmt.Fprintf(bw, "map_Kd %s\n", t)
		}
		if t := m.Texture(SlotNormal); t != "" {
			fmt.Fprintf(bw, "map_Bump %s\n", t)
		}
		if t := m.Texture(SlotSpecular); t != "" {
			fmt.Fprintf(bw, "map_Ks %s\n", t)
		}
	}
	return bw.Flush()
}

func ff(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
