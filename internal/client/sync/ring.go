package sync

import "golang.org/x/crypto/blake2b"

type digest = [blake2b.Size256]byte

func payloadDigest(encoded []byte) digest {
	return blake2b.Sum256(encoded)
}

// digestRing хранит идентичности исходящих сообщений текущего обмена
type digestRing struct {
	items []digest
	size  int
}

func newDigestRing(size int) *digestRing {
	return &digestRing{size: size, items: make([]digest, 0, size)}
}

func (r *digestRing) contains(d digest) bool {
	for _, item := range r.items {
		if item == d {
			return true
		}
	}
	return false
}

// push добавляет идентичность; false если кольцо уже заполнено
func (r *digestRing) push(d digest) bool {
	if len(r.items) >= r.size {
		return false
	}
	r.items = append(r.items, d)
	return true
}

func (r *digestRing) reset() {
	r.items = r.items[:0]
}
