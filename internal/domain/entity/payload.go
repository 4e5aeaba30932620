package entity

import "strings"

// AttributionStatusKey carries the acquisition status inside an attribution payload.
const AttributionStatusKey = "af_status"

// organicStatus is the af_status value for installs not driven by a campaign.
const organicStatus = "Organic"

// Payload is an attribution or deep-link mapping of arbitrary JSON values.
type Payload map[string]any

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the payload carries no keys.
func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

// IsOrganic reports whether the install was organically acquired.
func (p Payload) IsOrganic() bool {
	status, ok := p[AttributionStatusKey].(string)
	return ok && strings.EqualFold(status, organicStatus)
}

// MergePayloads combines attribution and deep-link data.
// Attribution keys win; the deep link only fills gaps.
func MergePayloads(attribution, deepLink Payload) Payload {
	merged := make(Payload, len(attribution)+len(deepLink))
	for k, v := range deepLink {
		merged[k] = v
	}
	for k, v := range attribution {
		merged[k] = v
	}
	return merged
}
