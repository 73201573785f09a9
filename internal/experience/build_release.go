//go:build !expdebug

package experience

const (
	debugBuild = false

	defaultWriteBufferSize = 1 << 20
)
