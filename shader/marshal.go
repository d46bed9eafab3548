package shader

// Matrix marshalling between host buffers and kernel-visible memory.
//
// Element data always moves by raw byte layout with no numeric
// conversion. The only permutation the marshalling layer ever applies
// is a transpose of matrix-typed bindings when the kernel was compiled
// with RowMajor=false, so that the kernel observes the column-major
// interpretation of row-major host data.

// elemSize is the element width of matrix bindings. Matrix bindings are
// declared over 32-bit elements.
const elemSize = 4

// MarshalConstants returns the kernel-visible bytes for a constants
// binding. When the binding is matrix-typed and the kernel was compiled
// with RowMajor=false, the returned slice is a transposed copy;
// otherwise src is returned as is.
func MarshalConstants(k *Kernel, src []byte) []byte {
	if k.Options.RowMajor || !k.Options.Layout.Constants.IsMatrix() {
		return src
	}
	return transpose(src, k.Options.Layout.Constants)
}

// MarshalOutput converts kernel-visible output bytes back to host
// layout for the CPU target, which marshals reads and writes
// symmetrically. The GPU target never calls this: a kernel-constructed
// matrix is written out row-major regardless of the RowMajor option.
func MarshalOutput(k *Kernel, out []byte) []byte {
	if k.Options.RowMajor || !k.Options.Layout.Output.IsMatrix() {
		return out
	}
	return transpose(out, k.Options.Layout.Output)
}

// transpose returns a copy of src with the leading rows*cols elements
// transposed. Trailing bytes beyond the matrix block are copied through
// unchanged. If src is too short for the declared matrix it is returned
// unmodified.
func transpose(src []byte, m MatrixLayout) []byte {
	n := m.Rows * m.Cols * elemSize
	if len(src) < n {
		return src
	}
	dst := make([]byte, len(src))
	copy(dst[n:], src[n:])
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			si := (r*m.Cols + c) * elemSize
			di := (c*m.Rows + r) * elemSize
			copy(dst[di:di+elemSize], src[si:si+elemSize])
		}
	}
	return dst
}
