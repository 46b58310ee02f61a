package clusterio

import "encoding/json"

// PointCodec converts a caller's point type to and from bytes, so the
// save/load helpers below can stay generic over P without needing gob
// registration or reflection.
type PointCodec[P any] struct {
	Encode func(P) ([]byte, error)
	Decode func([]byte) (P, error)
}

// JSONCodec builds a PointCodec backed by encoding/json, the simplest
// correct choice for point types that are plain structs with exported
// fields.
func JSONCodec[P any]() PointCodec[P] {
	return PointCodec[P]{
		Encode: func(p P) ([]byte, error) { return json.Marshal(p) },
		Decode: func(b []byte) (P, error) {
			var p P
			err := json.Unmarshal(b, &p)
			return p, err
		},
	}
}
