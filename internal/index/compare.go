package index

import "cmp"

// CompareFold orders strings byte by byte, ignoring ASCII case.
func CompareFold(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := foldByte(a[i]), foldByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return cmp.Compare(len(a), len(b))
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// NewFold builds a string-keyed index with case-insensitive ordering.
func NewFold[V any](opts ...Option[string, V]) *Tree[string, V] {
	return New[string, V](CompareFold, opts...)
}

// NewOrdered builds an index ordered by the natural order of K.
func NewOrdered[K cmp.Ordered, V any](opts ...Option[K, V]) *Tree[K, V] {
	return New[K, V](cmp.Compare[K], opts...)
}
