package corpus

import (
	"encoding/binary"
	"errors"
)

var errMalformedKey = errors.New("corpus: malformed method key")

// Key encodes the method as an opaque string usable as a map key. The token count and
// each token's byte length are written as uvarints ahead of the bytes, so two different
// token sequences never produce the same key.
func (m Method) Key() string {
	size := binary.MaxVarintLen64
	for _, tok := range m {
		size += binary.MaxVarintLen64 + len(tok)
	}
	buf := make([]byte, 0, size)
	buf = binary.AppendUvarint(buf, uint64(len(m)))
	for _, tok := range m {
		buf = binary.AppendUvarint(buf, uint64(len(tok)))
		buf = append(buf, tok...)
	}
	return string(buf)
}

// DecodeKey reverses Method.Key.
func DecodeKey(key string) (Method, error) {
	buf := []byte(key)
	count, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, errMalformedKey
	}
	buf = buf[n:]

	m := make(Method, 0, count)
	for i := uint64(0); i < count; i++ {
		size, n := binary.Uvarint(buf)
		if n <= 0 || uint64(len(buf)-n) < size {
			return nil, errMalformedKey
		}
		buf = buf[n:]
		m = append(m, string(buf[:size]))
		buf = buf[size:]
	}
	if len(buf) != 0 {
		return nil, errMalformedKey
	}
	return m, nil
}
