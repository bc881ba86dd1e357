package memory

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cs-au-dk/memsnap/analysis/index"
	"github.com/cs-au-dk/memsnap/analysis/structure"
	"github.com/cs-au-dk/memsnap/utils/dot"
)

// DotGraph builds a graph of the snapshot: one cluster per stack frame and
// per object, one node per index, edges from indexes to the elements of
// their arrays and the fields of their objects, and dashed edges between
// must aliases.
func (s *Snapshot) DotGraph() *dot.DotGraph {
	st := s.structure.Readonly()
	g := &dot.DotGraph{
		Title:   s.Describe(),
		Options: map[string]string{"rankdir": "LR"},
	}

	nodes := map[index.Index]*dot.DotNode{}
	node := func(i index.Index) *dot.DotNode {
		if n, ok := nodes[i]; ok {
			return n
		}
		label := i.String()
		if e, ok := s.memory.Readonly().Lookup(i); ok {
			label += "\n" + e.String()
		}
		n := &dot.DotNode{ID: i.String(), Attrs: dot.DotAttrs{"label": label}}
		if index.IsUnknown(i) {
			n.Attrs["fillcolor"] = "lightgrey"
		}
		nodes[i] = n
		return n
	}

	clusters := map[string]*dot.DotCluster{}
	cluster := func(id, label string) *dot.DotCluster {
		if c, ok := clusters[id]; ok {
			return c
		}
		c := dot.NewDotCluster(id)
		c.Attrs["label"] = label
		clusters[id] = c
		g.Clusters = append(g.Clusters, c)
		return c
	}

	for _, i := range st.Indexes() {
		var c *dot.DotCluster
		switch root := index.Root(i).(type) {
		case index.ObjectRoot:
			desc := st.MustObject(root.Object)
			c = cluster(fmt.Sprintf("object%d", root.Object), fmt.Sprintf("%v: %s", root, desc.Type))
		default:
			level := root.CallLevel()
			c = cluster(fmt.Sprintf("frame%d", level), fmt.Sprintf("frame %d", level))
		}
		c.Nodes = append(c.Nodes, node(i))
	}

	for _, i := range st.Indexes() {
		def := st.MustDefinition(i)
		if def.HasArray() {
			for _, el := range st.MustArray(def.Array).Indexes() {
				g.Edges = append(g.Edges, &dot.DotEdge{From: node(i), To: node(el), Attrs: dot.DotAttrs{}})
			}
		}
		for _, id := range structure.SortedObjects(def.Objects) {
			if desc, ok := st.Object(id); ok {
				for _, f := range desc.Indexes() {
					g.Edges = append(g.Edges, &dot.DotEdge{From: node(i), To: node(f), Attrs: dot.DotAttrs{"color": "purple"}})
				}
			}
		}
	}

	for _, group := range st.AliasGroups() {
		for k := 1; k < len(group); k++ {
			g.Edges = append(g.Edges, &dot.DotEdge{
				From:  node(group[k-1]),
				To:    node(group[k]),
				Attrs: dot.DotAttrs{"style": "dashed", "dir": "none"},
			})
		}
	}
	return g
}

// WriteDot writes the DOT source of the snapshot graph to w.
func (s *Snapshot) WriteDot(w io.Writer) error {
	return s.DotGraph().WriteDot(w)
}

// RenderDot renders the snapshot graph to file.format and returns the path
// of the image.
func (s *Snapshot) RenderDot(file, format string) (string, error) {
	var buf bytes.Buffer
	if err := s.WriteDot(&buf); err != nil {
		return "", err
	}
	return dot.DotToImage(file, format, buf.Bytes())
}
