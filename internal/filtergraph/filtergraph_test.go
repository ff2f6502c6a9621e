package filtergraph

import (
	"slices"
	"testing"

	"podcut/internal/segments"
)

func TestBuildDirectCopy(t *testing.T) {
	plan := Build(segments.Result{DirectCopy: true, TotalDuration: 30})
	if !plan.NoOp || plan.Graph != nil {
		t.Fatalf("expected no-op plan, got %+v", plan)
	}
	want := []string{"-i", "input.mp3", "-c", "copy", "output.mp3"}
	if got := plan.Args("input.mp3", "output.mp3"); !slices.Equal(got, want) {
		t.Fatalf("Args = %v, want %v", got, want)
	}
}

func TestBuildSingleSegment(t *testing.T) {
	plan := Build(segments.Result{Keep: []segments.Interval{{Start: 10, End: 20.5}}})
	if plan.SegmentCount != 1 {
		t.Fatalf("SegmentCount = %d", plan.SegmentCount)
	}
	want := "[0:a]atrim=start=10:end=20.5,asetpts=PTS-STARTPTS[out]"
	if got := plan.Graph.String(); got != want {
		t.Fatalf("graph = %q, want %q", got, want)
	}
}

func TestBuildMultipleSegments(t *testing.T) {
	plan := Build(segments.Result{Keep: []segments.Interval{
		{Start: 0, End: 5},
		{Start: 10, End: 12.25},
		{Start: 30, End: 60},
	}})
	want := "[0:a]atrim=start=0:end=5,asetpts=PTS-STARTPTS[a0];" +
		"[0:a]atrim=start=10:end=12.25,asetpts=PTS-STARTPTS[a1];" +
		"[0:a]atrim=start=30:end=60,asetpts=PTS-STARTPTS[a2];" +
		"[a0][a1][a2]concat=n=3:v=0:a=1[out]"
	if got := plan.Graph.String(); got != want {
		t.Fatalf("graph =\n%s\nwant\n%s", got, want)
	}
	if plan.SegmentCount != 3 {
		t.Fatalf("SegmentCount = %d", plan.SegmentCount)
	}
	args := plan.Args("in.wav", "out.wav")
	wantArgs := []string{"-i", "in.wav", "-filter_complex", want, "-map", "[out]", "out.wav"}
	if !slices.Equal(args, wantArgs) {
		t.Fatalf("Args = %v", args)
	}
}

func TestNilGraphString(t *testing.T) {
	var g *Graph
	if g.String() != "" {
		t.Fatal("nil graph should render empty")
	}
}
