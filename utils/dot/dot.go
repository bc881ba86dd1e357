package dot

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"
	"github.com/pkg/errors"
)

// DotToImage renders the DOT source to outfname.format and returns the
// path of the image.
func DotToImage(outfname string, format string, dot []byte) (img string, err error) {
	g := graphviz.New()
	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return "", errors.Wrap(err, "parsing dot graph")
	}
	defer func() {
		if cerr := graph.Close(); cerr != nil && err == nil {
			err = cerr
		}
		g.Close()
	}()

	img = fmt.Sprintf("%s.%s", outfname, format)
	if err := g.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", errors.Wrapf(err, "rendering %s", img)
	}
	return img, nil
}

const tmplCluster = `{{define "cluster" -}}
	{{printf "subgraph %q {" .}}
		{{.Prefix}}
		{{printf "%s" .Attrs.Lines}}
		{{range .Nodes}}
		{{template "node" .}}
		{{- end}}
		{{range .Clusters}}
		{{template "cluster" .}}
		{{- end}}
	{{println "}" }}
{{- end}}`

const tmplEdge = `{{define "edge" -}}
	{{printf "%q -> %q [ %s ]" .From .To .Attrs}}
{{- end}}`

const tmplNode = `{{define "node" -}}
	{{printf "%q [ %s ]" .ID .Attrs}}
{{- end}}`

const tmplGraph = `digraph Snapshot {
	label="{{.Title}}";
	labeljust="l";
	fontname="Arial";
	fontsize="14";
	rankdir="{{or .Options.rankdir "LR"}}";
	bgcolor="white";
	style="solid";
	penwidth="0.5";
	pad="0.0";
	nodesep="{{or .Options.nodesep "0.2"}}";
	remincross="{{or .Options.remincross "true"}}";

	node [shape="box" style="filled" fillcolor="honeydew" fontname="Verdana" penwidth="1.0" margin="0.05,0.0"];
	edge [minlen="{{or .Options.minlen "1"}}"]

	{{- range .Clusters}}
	{{template "cluster" .}}
	{{- end}}

	{{range .Nodes}}
	{{template "node" .}}
	{{- end}}

	{{- range .Edges}}
	{{template "edge" .}}
	{{- end}}
}
`

// ==[ type def/func: DotCluster ]===============================================
type DotCluster struct {
	ID       string
	Clusters map[string]*DotCluster
	Nodes    []*DotNode
	Attrs    DotAttrs
	Prefix   string
}

func NewDotCluster(id string) *DotCluster {
	return &DotCluster{
		ID:       id,
		Clusters: make(map[string]*DotCluster),
		Attrs:    make(DotAttrs),
	}
}

func (c *DotCluster) String() string {
	return fmt.Sprintf("cluster_%s", c.ID)
}

func (c *DotCluster) countNodes() int {
	res := len(c.Nodes)

	for _, cluster := range c.Clusters {
		res += cluster.countNodes()
	}

	return res
}

// ==[ type def/func: DotNode    ]===============================================
type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return n.ID
}

// ==[ type def/func: DotEdge    ]===============================================
type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

// ==[ type def/func: DotAttrs   ]===============================================
type DotAttrs map[string]string

// List returns the attributes ordered by key.
func (p DotAttrs) List() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l := []string{}
	for _, k := range keys {
		l = append(l, fmt.Sprintf("%s=%q;", k, p[k]))
	}
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), " ")
}

func (p DotAttrs) Lines() string {
	return strings.Join(p.List(), "\n")
}

// ==[ type def/func: DotGraph   ]===============================================
type DotGraph struct {
	Title    string
	Attrs    DotAttrs
	Clusters []*DotCluster
	Nodes    []*DotNode
	Edges    []*DotEdge
	Options  map[string]string
}

// CountNodes counts the nodes of the graph and all its clusters.
func (g *DotGraph) CountNodes() int {
	res := len(g.Nodes)

	for _, cluster := range g.Clusters {
		res += cluster.countNodes()
	}

	return res
}

func (g *DotGraph) WriteDot(w io.Writer) error {
	t := template.New("dot")
	t.Option("missingkey=zero") // Make missing map keys return the zero value of appropriate type
	for _, s := range []string{tmplCluster, tmplNode, tmplEdge, tmplGraph} {
		if _, err := t.Parse(s); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, g); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
