// Package blob frames a serialized model as one self-describing byte stream.
//
// Layout:
//
//	magic      [8]byte  "NGSTORE\x01"
//	codecLen   uint8
//	codec      []byte   codec name, see codec.ByName
//	headerLen  uint32
//	header     []byte   Header encoded by the codec
//	headerCRC  uint32   CRC32C of header
//	blocks     ...      [rawLen uint32][storedLen uint32][data]
//	end        [8]byte  rawLen == 0
//	bodyCRC    uint32   CRC32C of the uncompressed body
//	bodyLen    uint64
//
// A block with storedLen == 0 holds rawLen uncompressed bytes. All integers
// are little endian.
package blob
