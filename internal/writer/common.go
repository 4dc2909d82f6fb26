package writer

import "encoding/json"

// paramsToJSONB encodes event parameters for a JSONB column. nil and empty
// maps both encode as an empty object so the column is never NULL.
func paramsToJSONB(params map[string]any) []byte {
	if len(params) == 0 {
		return []byte("{}")
	}
	data, err := json.Marshal(params)
	if err != nil {
		// Envelope values come from decoded JSON or plain Go values, so
		// this only fires on host-injected unmarshalables.
		return []byte("{}")
	}
	return data
}
