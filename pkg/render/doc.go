// Package render draws logic networks as Graphviz node-link diagrams.
//
// [ToDOT] emits DOT text for a network. Buffers and inverters inserted by
// the optimizer are drawn dashed and grey; when a delay trace is supplied,
// nodes and edges on the most critical path are outlined in red and
// detailed labels carry arrival, required and slack values.
//
//	tr, _ := timing.Run(net, model)
//	dot := render.ToDOT(net, render.Options{Trace: tr, Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [RenderSVG] uses the WebAssembly build of Graphviz bundled with
// github.com/goccy/go-graphviz, so no system installation is required.
package render
