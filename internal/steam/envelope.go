package steam

import (
	"encoding/json"
	"strconv"
)

// The appdetails endpoint has answered in three different wrappings over
// time: a flat {success,data} object, the same object keyed by appid, and
// occasionally the bare data payload with no wrapper at all. DecodeDetail
// probes the shapes in that order and settles on the first one that carries
// a payload that looks real. Keeping the probe here, away from any network
// code, makes it testable against captured bodies.

type EnvelopeShape int

const (
	ShapeNone EnvelopeShape = iota
	ShapeFlat
	ShapeKeyed
	ShapeBare
)

func (s EnvelopeShape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeKeyed:
		return "keyed"
	case ShapeBare:
		return "bare"
	default:
		return "none"
	}
}

type flatEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// DecodeDetail returns the detected shape, whether the envelope reported
// success, and the decoded payload (nil unless success with usable data).
// Malformed or unrecognizable bodies come back as (ShapeNone, false, nil),
// never an error: the caller treats that as "no data available".
func DecodeDetail(appid int64, body []byte) (EnvelopeShape, bool, *DetailPayload) {
	// flat: {"success": true, "data": {...}}
	var flat flatEnvelope
	if err := json.Unmarshal(body, &flat); err == nil && flat.Success != nil {
		return ShapeFlat, *flat.Success, decodeData(flat)
	}

	// keyed by id: {"<appid>": {"success": true, "data": {...}}}
	var keyed map[string]flatEnvelope
	if err := json.Unmarshal(body, &keyed); err == nil {
		if entry, ok := keyed[strconv.FormatInt(appid, 10)]; ok && entry.Success != nil {
			return ShapeKeyed, *entry.Success, decodeData(entry)
		}
	}

	// bare payload, no wrapper
	var bare DetailPayload
	if err := json.Unmarshal(body, &bare); err == nil && payloadLooksValid(&bare) {
		return ShapeBare, true, &bare
	}

	return ShapeNone, false, nil
}

func decodeData(env flatEnvelope) *DetailPayload {
	if len(env.Data) == 0 {
		return nil
	}
	var p DetailPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil
	}
	if !payloadLooksValid(&p) {
		return nil
	}
	return &p
}

// payloadLooksValid is the heuristic that separates a real appdetails
// payload from arbitrary JSON that happened to decode: a name, a short
// description, or a release-date object must be present.
func payloadLooksValid(p *DetailPayload) bool {
	return p.Name != "" || p.ShortDescription != "" || p.ReleaseDate != nil
}
