package knn

// Workspace is a caller-owned scratch arena for the all-pairs distance
// matrix. Size it to the largest library x target pair of a session and reuse
// it across searches; it grows on demand and never shrinks.
type Workspace struct {
	distances []float32
	indices   []int32
}

// NewWorkspace preallocates room for nLibrary x nTarget cells
func NewWorkspace(nLibrary, nTarget int) *Workspace {
	w := &Workspace{}
	w.ensure(nLibrary * nTarget)
	return w
}

// Cap returns the number of cells currently allocated
func (w *Workspace) Cap() int {
	return len(w.distances)
}

func (w *Workspace) ensure(cells int) {
	if cells <= len(w.distances) {
		return
	}
	w.distances = make([]float32, cells)
	w.indices = make([]int32, cells)
}
