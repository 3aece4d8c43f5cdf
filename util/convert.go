package util

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// LENGTH_PREFIX_SIZE is the number of bytes in front of every page payload.
const LENGTH_PREFIX_SIZE = 4

// ToByteSlice serializes obj and frames it into a zero padded page of pageSize
// bytes: a big endian uint32 payload length followed by the msgpack payload.
func ToByteSlice[T any](obj T, pageSize int) ([]byte, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}

	if LENGTH_PREFIX_SIZE+len(data) > pageSize {
		return nil, fmt.Errorf("%w: %d bytes, page holds %d", ErrPageOverflow, LENGTH_PREFIX_SIZE+len(data), pageSize)
	}

	res := make([]byte, pageSize)
	binary.BigEndian.PutUint32(res, uint32(len(data)))
	copy(res[LENGTH_PREFIX_SIZE:], data)

	return res, nil
}

// ToStruct decodes a page produced by ToByteSlice.
func ToStruct[T any](page []byte) (T, error) {
	var res T

	if len(page) < LENGTH_PREFIX_SIZE {
		return res, NewCorruptionError("page too small for length prefix", nil)
	}

	size := int(binary.BigEndian.Uint32(page))
	if size == 0 {
		return res, NewCorruptionError("empty page payload", nil)
	}
	if LENGTH_PREFIX_SIZE+size > len(page) {
		return res, NewCorruptionError(fmt.Sprintf("payload length %d overruns page of %d bytes", size, len(page)), nil)
	}

	if err := msgpack.Unmarshal(page[LENGTH_PREFIX_SIZE:LENGTH_PREFIX_SIZE+size], &res); err != nil {
		return res, NewCorruptionError("decoding page payload", err)
	}

	return res, nil
}

// EncodedSize returns the framed size of obj without allocating a page.
func EncodedSize[T any](obj T) (int, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return 0, err
	}
	return LENGTH_PREFIX_SIZE + len(data), nil
}
