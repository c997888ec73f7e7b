package tools

// Status captures the resolved state of an external tool.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Path      string   `json:"path,omitempty"`
	Required  bool     `json:"required"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// BinarySpec describes the executable invoked for a tool.
type BinarySpec struct {
	Executable    string
	VersionSwitch string
}

// ToolDefinition contains what is needed to locate and version-check a tool.
type ToolDefinition struct {
	Name           string
	MinimumVersion string
	// Required tools must be present for vendoring and regeneration.
	Required bool
	Binary   BinarySpec
}
