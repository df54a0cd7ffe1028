package types

// ErrorEnvelope is the flat error body returned by every endpoint:
// success=false, the public message under "error" and any public details
// merged alongside.
type ErrorEnvelope map[string]any

// NewErrorEnvelope builds the body. Details never overwrite "success" or
// "error".
func NewErrorEnvelope(message string, details map[string]any) ErrorEnvelope {
	env := make(ErrorEnvelope, len(details)+2)
	for k, v := range details {
		env[k] = v
	}
	env["success"] = false
	env["error"] = message
	return env
}

// Acknowledgement is returned to webhook senders.
type Acknowledgement struct {
	Received bool `json:"received"`
}
