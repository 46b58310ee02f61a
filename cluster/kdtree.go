package cluster

import "math"

// KDTree indexes a fixed set of projected points for Range and Within
// queries. It is built once, in O(n log n), over flat parallel arrays
// rather than a pointer tree, the way the teacher's KDNode/KDTree did —
// generalized here to the interleaved quickselect partitioning kdbush-style
// static indices use, so query cost stays close to O(sqrt(n) + k) instead
// of degrading on skewed input.
type KDTree struct {
	xs, ys   []float64
	ids      []int
	nodeSize int
}

// NewKDTree builds an index over the given points. ids[i] is the caller's
// stable identifier for point i (xs[i], ys[i]); it is what Range and Within
// return, not the point's position in xs/ys (which is permuted during the
// build).
func NewKDTree(xs, ys []float64, ids []int, nodeSize int) *KDTree {
	if nodeSize <= 0 {
		nodeSize = 64
	}
	n := len(xs)
	t := &KDTree{
		xs:       append([]float64(nil), xs...),
		ys:       append([]float64(nil), ys...),
		ids:      append([]int(nil), ids...),
		nodeSize: nodeSize,
	}
	if n > 0 {
		t.sort(0, n-1, 0)
	}
	return t
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return len(t.ids) }

func (t *KDTree) axisValue(i, axis int) float64 {
	if axis == 0 {
		return t.xs[i]
	}
	return t.ys[i]
}

func (t *KDTree) swap(i, j int) {
	t.xs[i], t.xs[j] = t.xs[j], t.xs[i]
	t.ys[i], t.ys[j] = t.ys[j], t.ys[i]
	t.ids[i], t.ids[j] = t.ids[j], t.ids[i]
}

// sort recursively partitions [left, right] on alternating axes, via
// quickselect, until every sub-range is at most nodeSize+1 long; those
// sub-ranges become the leaf blocks Range/Within scan linearly.
func (t *KDTree) sort(left, right, axis int) {
	if right-left <= t.nodeSize {
		return
	}
	mid := (left + right) / 2
	t.quickselect(left, right, mid, axis)
	t.sort(left, mid-1, 1-axis)
	t.sort(mid+1, right, 1-axis)
}

// quickselect is the Floyd-Rivest selection algorithm: it partitions
// [left, right] so the k-th smallest element on the given axis lands at
// index k, with every smaller element to its left and every larger element
// to its right, in expected linear time even on adversarial input.
func (t *KDTree) quickselect(left, right, k, axis int) {
	for right > left {
		if right-left > 600 {
			n := float64(right - left + 1)
			m := float64(k - left + 1)
			z := math.Log(n)
			s := 0.5 * math.Exp(2*z/3)
			sd := 0.5 * math.Sqrt(z*s*(n-s)/n)
			if m-n/2 < 0 {
				sd = -sd
			}
			newLeft := int(math.Max(float64(left), float64(k)-m*s/n+sd))
			newRight := int(math.Min(float64(right), float64(k)+(n-m)*s/n+sd))
			t.quickselect(newLeft, newRight, k, axis)
		}

		pivot := t.axisValue(k, axis)
		i, j := left, right
		t.swap(left, k)
		if t.axisValue(right, axis) > pivot {
			t.swap(left, right)
		}
		for i < j {
			t.swap(i, j)
			i++
			j--
			for t.axisValue(i, axis) < pivot {
				i++
			}
			for t.axisValue(j, axis) > pivot {
				j--
			}
		}
		if t.axisValue(left, axis) == pivot {
			t.swap(left, j)
		} else {
			j++
			t.swap(j, right)
		}
		if j <= k {
			left = j + 1
		}
		if k <= j {
			right = j - 1
		}
	}
}

// kdFrame is one pending sub-range on the traversal stack: [left, right] on
// the given split axis.
type kdFrame struct {
	left, right, axis int
}

// Range returns the ids of every indexed point whose coordinates fall
// within the axis-aligned box [minX, maxX] x [minY, maxY].
func (t *KDTree) Range(minX, minY, maxX, maxY float64) []int {
	var out []int
	if len(t.ids) == 0 {
		return out
	}
	stack := []kdFrame{{0, len(t.ids) - 1, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.right-f.left <= t.nodeSize {
			for i := f.left; i <= f.right; i++ {
				if t.xs[i] >= minX && t.xs[i] <= maxX && t.ys[i] >= minY && t.ys[i] <= maxY {
					out = append(out, t.ids[i])
				}
			}
			continue
		}

		mid := (f.left + f.right) / 2
		x, y := t.xs[mid], t.ys[mid]
		if x >= minX && x <= maxX && y >= minY && y <= maxY {
			out = append(out, t.ids[mid])
		}

		var v, qlo, qhi float64
		if f.axis == 0 {
			v, qlo, qhi = x, minX, maxX
		} else {
			v, qlo, qhi = y, minY, maxY
		}
		if qlo <= v {
			stack = append(stack, kdFrame{f.left, mid - 1, 1 - f.axis})
		}
		if qhi >= v {
			stack = append(stack, kdFrame{mid + 1, f.right, 1 - f.axis})
		}
	}
	return out
}

// Within returns the ids of every indexed point within Euclidean distance
// r of (x, y).
func (t *KDTree) Within(x, y, r float64) []int {
	var out []int
	if len(t.ids) == 0 {
		return out
	}
	r2 := r * r
	stack := []kdFrame{{0, len(t.ids) - 1, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.right-f.left <= t.nodeSize {
			for i := f.left; i <= f.right; i++ {
				if sqDist(t.xs[i], t.ys[i], x, y) <= r2 {
					out = append(out, t.ids[i])
				}
			}
			continue
		}

		mid := (f.left + f.right) / 2
		if sqDist(t.xs[mid], t.ys[mid], x, y) <= r2 {
			out = append(out, t.ids[mid])
		}

		var v, q float64
		if f.axis == 0 {
			v, q = t.xs[mid], x
		} else {
			v, q = t.ys[mid], y
		}
		if q-r <= v {
			stack = append(stack, kdFrame{f.left, mid - 1, 1 - f.axis})
		}
		if q+r >= v {
			stack = append(stack, kdFrame{mid + 1, f.right, 1 - f.axis})
		}
	}
	return out
}
