package gateway

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Discriminator is the envelope field whose value signals success or failure
// independently of the HTTP status.
const Discriminator = "status"

// envelope is the discriminated response shape: {status, data, message}.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

// normalize unwraps a 2xx body. A body carrying the discriminator resolves
// to its data field or rejects with its message; any other body passes
// through whole.
func normalize(body []byte, success any, status int) (json.RawMessage, *Error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &Error{Kind: KindEmptyBody, Status: status, Message: MsgRequestFailed}
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		// Bare text on success; hand it on as a JSON string.
		encoded, _ := json.Marshal(string(body))
		return encoded, nil
	}
	if !truthy(decoded) {
		return nil, &Error{Kind: KindEmptyBody, Status: status, Message: MsgRequestFailed}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return trimmed, nil
	}
	discriminator, present := obj[Discriminator]
	if !present {
		return trimmed, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed, nil
	}
	if reflect.DeepEqual(discriminator, success) {
		if len(env.Data) == 0 {
			return json.RawMessage("null"), nil
		}
		return env.Data, nil
	}

	msg := MsgRequestFailed
	if s, ok := obj["message"].(string); ok && s != "" {
		msg = s
	}
	return nil, &Error{Kind: KindBusiness, Status: status, Message: msg}
}

// parseSuccessValue reads the configured success discriminator. Anything
// that is not valid JSON is taken as a plain string.
func parseSuccessValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
