//go:build expdebug

package experience

const (
	debugBuild = true

	// Small enough that tests exercise many flushes.
	defaultWriteBufferSize = 1 << 10
)
