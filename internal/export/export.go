// Package export serializes graph snapshots into interchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Format identifies an export format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatGEXF    Format = "gexf"
	FormatGraphML Format = "graphml"
	FormatDOT     Format = "dot"
)

// KnownFormats lists every supported export format.
var KnownFormats = []Format{FormatJSON, FormatCSV, FormatGEXF, FormatGraphML, FormatDOT}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Export serializes the snapshot in the given format.
func Export(snap *graph.Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(snap)
	case FormatCSV:
		return CSV(snap)
	case FormatGEXF:
		return GEXF(snap)
	case FormatGraphML:
		return GraphML(snap)
	case FormatDOT:
		return []byte(DOT(snap)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// JSON serializes the snapshot, including its metadata, as indented JSON.
func JSON(snap *graph.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// CSV writes the snapshot as two labeled sections: a NODES block and an
// EDGES block, each with its own header row.
func CSV(snap *graph.Snapshot) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	w.Write([]string{"NODES"})
	w.Write([]string{"id", "name", "league", "city", "founded", "stadium"})
	for _, n := range snap.Nodes {
		w.Write([]string{
			strconv.Itoa(n.ID),
			n.Club.Name,
			n.Club.League,
			n.Club.City,
			strconv.Itoa(n.Club.Founded),
			n.Club.Stadium,
		})
	}

	w.Write([]string{"EDGES"})
	w.Write([]string{"id", "source", "target", "type", "strength", "weight", "active"})
	for _, e := range snap.Edges {
		w.Write([]string{
			e.ID,
			strconv.Itoa(e.Source),
			strconv.Itoa(e.Target),
			string(e.Type),
			string(e.Strength),
			strconv.FormatFloat(e.Weight, 'f', -1, 64),
			strconv.FormatBool(e.Active),
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return []byte(b.String()), nil
}

// GEXF document structure per the 1.3 schema.
type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	LastModified string `xml:"lastmodifieddate,attr"`
	Creator      string `xml:"creator"`
	Description  string `xml:"description"`
}

type gexfGraph struct {
	Mode     string     `xml:"mode,attr"`
	EdgeType string     `xml:"defaultedgetype,attr"`
	Nodes    []gexfNode `xml:"nodes>node"`
	Edges    []gexfEdge `xml:"edges>edge"`
}

type gexfNode struct {
	ID    string `xml:"id,attr"`
	Label string `xml:"label,attr"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
}

// GEXF serializes the snapshot as a GEXF 1.3 document with undirected
// weighted edges.
func GEXF(snap *graph.Snapshot) ([]byte, error) {
	doc := gexfDoc{
		XMLNS:   "http://gexf.net/1.3",
		Version: "1.3",
		Meta: gexfMeta{
			LastModified: time.Now().UTC().Format("2006-01-02"),
			Creator:      "clubgraph",
			Description:  "Football club network",
		},
		Graph: gexfGraph{Mode: "static", EdgeType: "undirected"},
	}
	for _, n := range snap.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{
			ID:    strconv.Itoa(n.ID),
			Label: n.Label,
		})
	}
	for _, e := range snap.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     e.ID,
			Source: strconv.Itoa(e.Source),
			Target: strconv.Itoa(e.Target),
			Weight: e.Weight,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal gexf: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// GraphML document structure.
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string         `xml:"id,attr"`
	Data []graphmlDatum `xml:"data"`
}

type graphmlEdge struct {
	ID     string         `xml:"id,attr"`
	Source string         `xml:"source,attr"`
	Target string         `xml:"target,attr"`
	Data   []graphmlDatum `xml:"data"`
}

type graphmlDatum struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// GraphML serializes the snapshot as a GraphML document with name,
// league and city node attributes and type/weight edge attributes.
func GraphML(snap *graph.Snapshot) ([]byte, error) {
	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "name", For: "node", Name: "name", Type: "string"},
			{ID: "league", For: "node", Name: "league", Type: "string"},
			{ID: "city", For: "node", Name: "city", Type: "string"},
			{ID: "type", For: "edge", Name: "type", Type: "string"},
			{ID: "weight", For: "edge", Name: "weight", Type: "double"},
		},
		Graph: graphmlGraph{ID: "clubs", EdgeDefault: "undirected"},
	}
	for _, n := range snap.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: strconv.Itoa(n.ID),
			Data: []graphmlDatum{
				{Key: "name", Value: n.Club.Name},
				{Key: "league", Value: n.Club.League},
				{Key: "city", Value: n.Club.City},
			},
		})
	}
	for _, e := range snap.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			ID:     e.ID,
			Source: strconv.Itoa(e.Source),
			Target: strconv.Itoa(e.Target),
			Data: []graphmlDatum{
				{Key: "type", Value: string(e.Type)},
				{Key: "weight", Value: strconv.FormatFloat(e.Weight, 'f', -1, 64)},
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graphml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// DOT generates a Graphviz representation, clustering clubs by league.
func DOT(snap *graph.Snapshot) string {
	var b strings.Builder
	b.WriteString("graph clubs {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	leagues := make(map[string][]graph.Node)
	var order []string
	for _, n := range snap.Nodes {
		if _, seen := leagues[n.Club.League]; !seen {
			order = append(order, n.Club.League)
		}
		leagues[n.Club.League] = append(leagues[n.Club.League], n)
	}

	for _, league := range order {
		b.WriteString(fmt.Sprintf("  subgraph cluster_%s {\n", sanitizeDOTID(league)))
		b.WriteString(fmt.Sprintf("    label=\"%s\";\n", league))
		b.WriteString("    style=dashed;\n")
		for _, n := range leagues[league] {
			b.WriteString(fmt.Sprintf("    \"%d\" [label=\"%s\" style=filled fillcolor=\"%s\"];\n",
				n.ID, n.Label, n.Color))
		}
		b.WriteString("  }\n\n")
	}

	for _, e := range snap.Edges {
		b.WriteString(fmt.Sprintf("  \"%d\" -- \"%d\" [label=\"%s\" penwidth=%.1f];\n",
			e.Source, e.Target, e.Type, edgePenWidth(e.Weight)))
	}

	b.WriteString("}\n")
	return b.String()
}

func edgePenWidth(weight float64) float64 {
	w := 0.5 + weight/25
	if w > 4.5 {
		w = 4.5
	}
	return w
}

func sanitizeDOTID(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}
