package types

import "time"

// ModuleResult is the fixed contract every module handler returns
// (spec.md §4.2, design note 2 — replacing "duck-typed handler returns
// whatever it wants"). success/action/payload/summary/errors/llm_context
// are ALL a handler has to communicate with the caller; nothing else is
// inspected.
type ModuleResult struct {
	Success    bool                   `json:"success"`
	Module     string                 `json:"module"`
	Action     string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Summary    string                 `json:"summary"`
	Errors     []string               `json:"errors,omitempty"`
	LLMContext string                 `json:"llm_context"`
}

// RouterResult is the Router's classification of a user utterance
// (spec.md §4.2).
type RouterResult struct {
	Module     string                 `json:"module"`
	SubIntent  string                 `json:"sub_intent"`
	Entities   map[string]interface{} `json:"entities"`
	Confidence float64                `json:"confidence"`
}

// PipelineDocument is the intake-side representation of an ingested file
// or message, before any module has produced a booking (spec.md §3).
type PipelineDocument struct {
	ID              string    `json:"id"`
	FilePath        string    `json:"file_path,omitempty"`
	Raw             []byte    `json:"-"`
	DetectedKind    DocumentKind `json:"detected_kind"`
	DetectedClient  string    `json:"detected_client"`
	AssignedModule  string    `json:"assigned_module"`
	Confidence      float64   `json:"confidence"`
	RoutingMethod   string    `json:"routing_method"` // "tax_id" | "iban" | "sender_domain" | "folder"
	CreatedAt       time.Time `json:"created_at"`
}
