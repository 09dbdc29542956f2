package model

import (
	"errors"
	"fmt"
	"sort"
)

// Node is one node of a regression tree stored as a flat array. Leaves have
// Feature -1. Children always sit after their parent, so a valid tree has
// no cycles.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// TreeOptions bound tree growth.
type TreeOptions struct {
	MaxDepth int
	MinLeaf  int
}

// Predict walks x down to a leaf. x must be at least as long as the largest
// feature index used; Forest checks this.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if !finite(n.Value) || !finite(n.Threshold) {
			return fmt.Errorf("node %d: value is not finite", i)
		}
		if n.Feature == -1 {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// growTree fits a tree on the rows listed in idx (repeats allowed).
func growTree(X [][]float64, y []float64, idx []int, opts TreeOptions) Tree {
	b := &treeBuilder{X: X, y: y, opts: opts}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

type treeBuilder struct {
	X     [][]float64
	y     []float64
	opts  TreeOptions
	nodes []Node
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: b.mean(idx)})

	if depth >= b.opts.MaxDepth || len(idx) < 2*b.opts.MinLeaf {
		return self
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: b.nodes[self].Value}
	return self
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

// bestSplit finds the feature and threshold with the lowest summed squared
// error over both sides, leaving at least MinLeaf rows on each side.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	bestSSE := totalSq - total*total/float64(n) - 1e-9

	sorted := make([]int, n)
	for f := range len(b.X[idx[0]]) {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := b.y[sorted[k]]
			leftSum += v
			leftSq += v * v

			nl := k + 1
			nr := n - nl
			if nl < b.opts.MinLeaf || nr < b.opts.MinLeaf {
				continue
			}
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := leftSq - leftSum*leftSum/float64(nl) + rightSq - rightSum*rightSum/float64(nr)
			if sse < bestSSE {
				mid := cur + (next-cur)/2
				if mid >= next {
					mid = cur
				}
				bestSSE = sse
				feature, threshold, ok = f, mid, true
			}
		}
	}
	return feature, threshold, ok
}
