package tool

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema is the JSON Schema subset used to describe tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Object builds an object schema from its properties and required names.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Capability is the coarse domain a tool belongs to. The classifier
// routes user requests by capability.
type Capability string

const (
	CapabilityFilesystem     Capability = "filesystem"
	CapabilityShell          Capability = "shell"
	CapabilityGit            Capability = "git"
	CapabilityInformational  Capability = "informational"
	CapabilityConversational Capability = "conversational"
)

// Capabilities lists every known capability class.
var Capabilities = []Capability{
	CapabilityFilesystem,
	CapabilityShell,
	CapabilityGit,
	CapabilityInformational,
	CapabilityConversational,
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, k := range Capabilities {
		if c == k {
			return true
		}
	}
	return false
}

// Spec is the static descriptor of a callable tool.
type Spec struct {
	Name        string
	Description string
	Parameters  *Schema
	Destructive bool
	// Server identifies the tool server that executes this tool.
	Server     string
	Capability Capability
	// Keywords are extra classification hints for the tool's capability.
	Keywords []string
}

// Declaration returns the LLM-facing declaration of the spec.
func (s Spec) Declaration() Declaration {
	return Declaration{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.Parameters,
	}
}

// Status is the outcome class of a tool call.
type Status string

const (
	StatusOK     Status = "ok"
	StatusError  Status = "error"
	StatusDenied Status = "denied"
)

// Result is the normalized outcome of executing a tool call.
// Error is set iff Status is not StatusOK.
type Result struct {
	Status  Status
	Payload string
	Error   string
}

// OK wraps a successful payload.
func OK(payload string) Result {
	return Result{Status: StatusOK, Payload: payload}
}

// Failed builds an error result.
func Failed(detail string) Result {
	return Result{Status: StatusError, Error: detail}
}

// Denied builds a denial result.
func Denied(reason string) Result {
	return Result{Status: StatusDenied, Error: reason}
}

// LLMContent renders the result as the text sent back to the model.
func (r Result) LLMContent() string {
	switch r.Status {
	case StatusOK:
		return r.Payload
	case StatusDenied:
		return "Denied: " + r.Error
	default:
		return "Error: " + r.Error
	}
}
