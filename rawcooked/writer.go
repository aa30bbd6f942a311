package rawcooked

// ebWriter serializes elements in two passes over the same emission code.
// While buf is nil it only measures: every block records its content size in
// the slot reserved when it was opened. allocate then sizes buf exactly and
// the second pass writes each block size right after its name, consuming the
// slots in the order blocks are opened.
type ebWriter struct {
	buf []byte
	off int

	open  []openBlock
	sizes []uint64
	next  int
}

type openBlock struct {
	start int
	slot  int
}

func (w *ebWriter) measuring() bool { return w.buf == nil }

// allocate ends the measuring pass.
func (w *ebWriter) allocate() {
	if len(w.open) != 0 {
		panic("ebWriter: unbalanced blocks")
	}
	w.buf = make([]byte, w.off)
	w.off = 0
	w.next = 0
}

// bytes returns the written record once the writing pass is done.
func (w *ebWriter) bytes() []byte {
	if w.off != len(w.buf) || w.next != len(w.sizes) {
		panic("ebWriter: writing pass differs from measuring pass")
	}
	return w.buf
}

func (w *ebWriter) putEB(v uint64) {
	if w.measuring() {
		w.off += SizeEB(v)
		return
	}
	w.off += putEB(w.buf[w.off:], v)
}

func (w *ebWriter) putBytes(b []byte) {
	if !w.measuring() {
		copy(w.buf[w.off:], b)
	}
	w.off += len(b)
}

func (w *ebWriter) begin(name uint64) {
	w.putEB(name)
	if w.measuring() {
		w.open = append(w.open, openBlock{start: w.off, slot: len(w.sizes)})
		w.sizes = append(w.sizes, 0)
		return
	}
	w.putEB(w.sizes[w.next])
	w.next++
}

func (w *ebWriter) end() {
	if !w.measuring() {
		return
	}
	j := len(w.open) - 1
	b := w.open[j]
	w.open = w.open[:j]
	size := uint64(w.off - b.start)
	w.sizes[b.slot] = size
	// the size field sits before the content but was not counted yet
	w.off += SizeEB(size)
}

func (w *ebWriter) putString(name uint64, s string) {
	w.begin(name)
	if w.measuring() {
		w.off += len(s)
	} else {
		w.off += copy(w.buf[w.off:], s)
	}
	w.end()
}

func (w *ebWriter) putNumber(name uint64, v uint64) {
	w.begin(name)
	n := numberLen(v)
	if !w.measuring() {
		for i := 0; i < n; i++ {
			w.buf[w.off+i] = byte(v >> (8 * uint(n-1-i)))
		}
	}
	w.off += n
	w.end()
}

// putBuffer writes a payload prefixed by its uncompressed size.
func (w *ebWriter) putBuffer(name uint64, b Buffer) {
	w.begin(name)
	w.putEB(b.UncompressedSize())
	w.putBytes(b.Bytes())
	w.end()
}

func (w *ebWriter) putHash(h Hash) {
	w.begin(nameFileHash)
	w.putBytes([]byte{byte(h.Scheme)})
	w.putBytes(h.Sum)
	w.end()
}

// numberLen is the minimal big-endian width of v, at least one byte.
func numberLen(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}
