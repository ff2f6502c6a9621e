// Package filtergraph builds declarative ffmpeg processing plans from keep
// segments. Nothing here executes a process.
package filtergraph

import (
	"strconv"
	"strings"

	"podcut/internal/segments"
)

// OutputLabel is the stream label the final chain writes to.
const OutputLabel = "out"

// Filter is a single ffmpeg filter with ordered key=value options.
type Filter struct {
	Name    string
	Options []Option
}

// Option is one key=value filter argument.
type Option struct {
	Key   string
	Value string
}

// Chain is a linear filter chain between labelled pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Graph is an ordered list of chains rendered with ';' separators.
type Graph struct {
	Chains []Chain
}

// Plan is the processing plan handed to the media engine. A NoOp plan carries
// no graph and means the input is copied through unchanged.
type Plan struct {
	Graph        *Graph
	SegmentCount int
	NoOp         bool
}

// Build converts a planning result into a processing plan.
func Build(result segments.Result) Plan {
	if result.DirectCopy || len(result.Keep) == 0 {
		return Plan{NoOp: true}
	}
	if len(result.Keep) == 1 {
		return Plan{
			Graph:        &Graph{Chains: []Chain{trimChain(result.Keep[0], OutputLabel)}},
			SegmentCount: 1,
		}
	}

	chains := make([]Chain, 0, len(result.Keep)+1)
	labels := make([]string, 0, len(result.Keep))
	for i, seg := range result.Keep {
		label := "a" + strconv.Itoa(i)
		chains = append(chains, trimChain(seg, label))
		labels = append(labels, label)
	}
	chains = append(chains, Chain{
		Inputs: labels,
		Filters: []Filter{{
			Name: "concat",
			Options: []Option{
				{Key: "n", Value: strconv.Itoa(len(labels))},
				{Key: "v", Value: "0"},
				{Key: "a", Value: "1"},
			},
		}},
		Outputs: []string{OutputLabel},
	})
	return Plan{Graph: &Graph{Chains: chains}, SegmentCount: len(result.Keep)}
}

func trimChain(seg segments.Interval, label string) Chain {
	return Chain{
		Inputs: []string{"0:a"},
		Filters: []Filter{
			{Name: "atrim", Options: []Option{
				{Key: "start", Value: formatSeconds(seg.Start)},
				{Key: "end", Value: formatSeconds(seg.End)},
			}},
			{Name: "asetpts", Options: []Option{{Value: "PTS-STARTPTS"}}},
		},
		Outputs: []string{label},
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String renders the graph as an ffmpeg -filter_complex argument.
func (g *Graph) String() string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	for i, chain := range g.Chains {
		if i > 0 {
			b.WriteByte(';')
		}
		chain.writeTo(&b)
	}
	return b.String()
}

func (c Chain) writeTo(b *strings.Builder) {
	for _, in := range c.Inputs {
		b.WriteByte('[')
		b.WriteString(in)
		b.WriteByte(']')
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		for j, opt := range f.Options {
			if j == 0 {
				b.WriteByte('=')
			} else {
				b.WriteByte(':')
			}
			if opt.Key != "" {
				b.WriteString(opt.Key)
				b.WriteByte('=')
			}
			b.WriteString(opt.Value)
		}
	}
	for _, out := range c.Outputs {
		b.WriteByte('[')
		b.WriteString(out)
		b.WriteByte(']')
	}
}

// Args returns the ffmpeg argument vector that applies the plan to input
// and writes output. Callers supply global flags such as -y separately.
func (p Plan) Args(input, output string) []string {
	if p.NoOp || p.Graph == nil {
		return []string{"-i", input, "-c", "copy", output}
	}
	return []string{
		"-i", input,
		"-filter_complex", p.Graph.String(),
		"-map", "[" + OutputLabel + "]",
		output,
	}
}
