package graph

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Sample is a client-supplied graph overlaid on a parent. Edges can be
// appended after construction; they are never removed and ids are never
// reused.
type Sample struct {
	*Layer
	origSource int32
	origTarget int32
}

// NewSample creates an empty sample graph on top of parent.
func NewSample(parent Graph) *Sample {
	l := NewLayer(nil)
	l.SetParent(parent)
	return &Sample{Layer: l, origSource: -1, origTarget: -1}
}

// AddEdge appends an edge and returns its id.
func (s *Sample) AddEdge(source, target, weight int32) int32 {
	idx := s.add(Edge{Source: source, Target: target, Weight: weight, Origin: -1})
	return int32(s.parentEdges() + idx)
}

// HasNode reports whether node has local outgoing edges or is a node of the
// parent graph.
func (s *Sample) HasNode(node int32) bool {
	if _, ok := s.out[node]; ok {
		return true
	}
	return node >= 0 && int(node) < s.parentNodes()
}

func (s *Sample) SetOrigSource(node int32) { s.origSource = node }
func (s *Sample) SetOrigTarget(node int32) { s.origTarget = node }

// OrigSource returns the node the sample query starts at, or -1.
func (s *Sample) OrigSource() int32 { return s.origSource }

// OrigTarget returns the node the sample query ends at, or -1.
func (s *Sample) OrigTarget() int32 { return s.origTarget }

// sampleDoc is the YAML layout of a sample graph:
//
//	srcId: 0
//	trgtId: 4
//	edges:
//	  - [0, 1, 5]
//	  - [0, 2, 2]
type sampleDoc struct {
	Source *int32     `yaml:"srcId"`
	Target *int32     `yaml:"trgtId"`
	Edges  [][3]int32 `yaml:"edges"`
}

// ReadSample decodes a sample graph document and overlays it on parent.
// Unknown fields are ignored.
func ReadSample(r io.Reader, parent Graph) (*Sample, error) {
	var doc sampleDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("sample graph: empty document")
		}
		return nil, errors.Wrap(err, "sample graph")
	}

	s := NewSample(parent)
	for i, e := range doc.Edges {
		if e[2] < 0 {
			return nil, errors.Errorf("sample graph: edge %d has negative weight %d", i, e[2])
		}
		if e[0] < 0 || e[1] < 0 {
			return nil, errors.Errorf("sample graph: edge %d has negative node id", i)
		}
		s.AddEdge(e[0], e[1], e[2])
	}
	if doc.Source != nil {
		s.SetOrigSource(*doc.Source)
	}
	if doc.Target != nil {
		s.SetOrigTarget(*doc.Target)
	}
	return s, nil
}
