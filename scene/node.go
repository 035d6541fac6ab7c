package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"snowscene/core"
)

// Node is one element of an imported hierarchy. The scene itself is flat;
// nodes only live long enough for Flatten to bake their transforms.
type Node struct {
	Name      string
	Transform core.Transform
	Parent    *Node
	Children  []*Node
	Meshes    []*Mesh

	worldMatrixDirty bool
	worldMatrix      mgl32.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:             name,
		Transform:        core.NewTransform(),
		worldMatrixDirty: true,
	}
}

func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	child.MarkWorldMatrixDirty()
	n.Children = append(n.Children, child)
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.MarkWorldMatrixDirty()
			return
		}
	}
}

func (n *Node) GetWorldMatrix() mgl32.Mat4 {
	if n.worldMatrixDirty {
		local := n.Transform.GetMatrix()
		if n.Parent != nil {
			n.worldMatrix = n.Parent.GetWorldMatrix().Mul4(local)
		} else {
			n.worldMatrix = local
		}
		n.worldMatrixDirty = false
	}
	return n.worldMatrix
}

func (n *Node) MarkWorldMatrixDirty() {
	n.worldMatrixDirty = true
	for _, child := range n.Children {
		child.MarkWorldMatrixDirty()
	}
}

// Traverse visits n and its descendants depth-first.
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// Find finds a node by name
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Flatten pre-transforms every mesh below the roots into world space and
// returns them in traversal order. A mesh shared by several nodes is
// copied once per instance.
func Flatten(roots []*Node) []*Mesh {
	var out []*Mesh
	seen := make(map[*Mesh]bool)
	for _, root := range roots {
		root.Traverse(func(n *Node) {
			world := n.GetWorldMatrix()
			identity := world == mgl32.Ident4()
			for _, m := range n.Meshes {
				inst := m
				if !identity || seen[m] {
					inst = cloneMesh(m)
					inst.ApplyTransform(world)
				}
				seen[m] = true
				out = append(out, inst)
			}
		})
	}
	return out
}

func cloneMesh(m *Mesh) *Mesh {
	c := *m
	c.Vertices = append([]core.Vertex(nil), m.Vertices...)
	c.Indices = append([]uint32(nil), m.Indices...)
	return &c
}
