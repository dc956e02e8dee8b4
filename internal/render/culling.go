package render

import "github.com/clubgraph/clubgraph/internal/graph"

// cullingMargin widens the visible rectangle by this many screen
// pixels so nodes do not pop at the viewport border.
const cullingMargin = 100.0

// Viewport describes the current pan/zoom state of the renderer.
type Viewport struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Zoom    float64 `json:"zoom"`
	Width   float64 `json:"width"`  // screen width in px
	Height  float64 `json:"height"` // screen height in px
}

// Bounds returns the world-coordinate rectangle visible under the
// viewport, including the culling margin.
func (v Viewport) Bounds() (minX, minY, maxX, maxY float64) {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	halfW := (v.Width/2 + cullingMargin) / zoom
	halfH := (v.Height/2 + cullingMargin) / zoom
	return v.CenterX - halfW, v.CenterY - halfH, v.CenterX + halfW, v.CenterY + halfH
}

// Contains reports whether a world position is inside the viewport.
func (v Viewport) Contains(x, y float64) bool {
	minX, minY, maxX, maxY := v.Bounds()
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// CullStats summarizes one culling pass.
type CullStats struct {
	VisibleNodes int `json:"visible_nodes"`
	HiddenNodes  int `json:"hidden_nodes"`
	VisibleEdges int `json:"visible_edges"`
	HiddenEdges  int `json:"hidden_edges"`
}

// Cull recomputes visibility flags in place from the current viewport.
// In-bounds nodes become visible up to maxVisible; further in-bounds
// nodes and all out-of-bounds nodes are hidden. An edge is visible only
// if both endpoints are. Only the Hidden flags are touched, never the
// model itself. Idempotent: the result depends only on the inputs.
func Cull(nodes []graph.Node, edges []graph.Edge, vp Viewport, maxVisible int) CullStats {
	var stats CullStats

	visible := make(map[int]bool, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		show := vp.Contains(n.X, n.Y) && (maxVisible <= 0 || stats.VisibleNodes < maxVisible)
		n.Hidden = !show
		if show {
			visible[n.ID] = true
			stats.VisibleNodes++
		} else {
			stats.HiddenNodes++
		}
	}

	for i := range edges {
		e := &edges[i]
		show := visible[e.Source] && visible[e.Target]
		e.Hidden = !show
		if show {
			stats.VisibleEdges++
		} else {
			stats.HiddenEdges++
		}
	}
	return stats
}

// ShowAll clears every visibility flag, used when culling deactivates.
func ShowAll(nodes []graph.Node, edges []graph.Edge) CullStats {
	for i := range nodes {
		nodes[i].Hidden = false
	}
	for i := range edges {
		edges[i].Hidden = false
	}
	return CullStats{VisibleNodes: len(nodes), VisibleEdges: len(edges)}
}
