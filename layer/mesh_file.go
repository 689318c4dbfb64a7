package layer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// WritePLY writes the mesh as an ASCII PLY file, with per-vertex color
// when the mesh carries one color per vertex.
func (m *SerializedMesh) WritePLY(out io.Writer) error {
	withColor := len(m.Colors) == len(m.Vertices) && len(m.Colors) > 0
	w := bufio.NewWriter(out)

	fmt.Fprintln(w, "ply")
	fmt.Fprintln(w, "format ascii 1.0")
	fmt.Fprintf(w, "element vertex %d\n", len(m.Vertices))
	fmt.Fprintln(w, "property float x")
	fmt.Fprintln(w, "property float y")
	fmt.Fprintln(w, "property float z")
	if withColor {
		fmt.Fprintln(w, "property uchar red")
		fmt.Fprintln(w, "property uchar green")
		fmt.Fprintln(w, "property uchar blue")
	}
	fmt.Fprintf(w, "element face %d\n", len(m.Triangles))
	fmt.Fprintln(w, "property list uchar int vertex_indices")
	fmt.Fprintln(w, "end_header")

	for i, v := range m.Vertices {
		if withColor {
			c := m.Colors[i]
			fmt.Fprintf(w, "%f %f %f %d %d %d\n", v.X, v.Y, v.Z, c.R, c.G, c.B)
		} else {
			fmt.Fprintf(w, "%f %f %f\n", v.X, v.Y, v.Z)
		}
	}
	for _, tri := range m.Triangles {
		if _, err := fmt.Fprintf(w, "3 %d %d %d\n", tri[0], tri[1], tri[2]); err != nil {
			return errors.Wrap(err, "writing ply face")
		}
	}
	return w.Flush()
}
