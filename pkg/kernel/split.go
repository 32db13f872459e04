package kernel

// Causal reports whether the row precedes the origin in raster order, where
// x varies fastest and v slowest. For rows with t = v = 0 this is the 3-D
// rule: z < 0, or z == 0 and y < 0, or z == y == 0 and x < 0.
func (r Row) Causal() bool {
	for _, a := range [...]int{AxisV, AxisT, AxisZ, AxisY, AxisX} {
		switch {
		case r.Offset[a] < 0:
			return true
		case r.Offset[a] > 0:
			return false
		}
	}
	return false
}

// Split partitions a point-symmetric kernel into the rows visited before the
// origin in a forward raster scan (causal) and the remaining rows
// (anticausal, including the zero row). Rows are copied and both halves get
// their own pads.
func (k *Kernel) Split() (causal, anticausal *Kernel) {
	causal = &Kernel{Rows: make([]Row, 0, len(k.Rows))}
	anticausal = &Kernel{Rows: make([]Row, 0, len(k.Rows))}
	for _, r := range k.Rows {
		if r.Causal() {
			causal.Rows = append(causal.Rows, r)
		} else {
			anticausal.Rows = append(anticausal.Rows, r)
		}
	}
	causal.DerivePadding()
	anticausal.DerivePadding()
	return causal, anticausal
}
