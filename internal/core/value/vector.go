package value

import "encoding/json"

// Type tags written into the "_type" field of serialized vector-like values.
const (
	TypeVector3    = "Vector3"
	TypeQuaternion = "Quaternion"
	TypeEuler      = "Euler"
)

// Vector3 is a position, scale or direction.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Clone() any { return v }

func (v Vector3) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
		Z    float64 `json:"z"`
		Type string  `json:"_type"`
	}{v.X, v.Y, v.Z, TypeVector3})
}

// Quaternion is an orientation.
type Quaternion struct {
	X, Y, Z, W float64
}

func (q Quaternion) Clone() any { return q }

func (q Quaternion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
		Z    float64 `json:"z"`
		W    float64 `json:"w"`
		Type string  `json:"_type"`
	}{q.X, q.Y, q.Z, q.W, TypeQuaternion})
}

// Euler is an orientation expressed as three angles applied in Order
// (e.g. "XYZ").
type Euler struct {
	X, Y, Z float64
	Order   string
}

func (e Euler) Clone() any { return e }

func (e Euler) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Z     float64 `json:"z"`
		Order string  `json:"order"`
		Type  string  `json:"_type"`
	}{e.X, e.Y, e.Z, e.Order, TypeEuler})
}

// TypeTag returns the "_type" tag of a decoded wire value, or "" when v is
// not a tagged record. Decoding never rebuilds Vector3/Quaternion/Euler;
// callers that want the rich type use the tag to do it themselves.
func TypeTag(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	tag, _ := m["_type"].(string)
	return tag
}
