package models

// QueryMode selects between general and project-scoped assistant queries.
type QueryMode string

const (
	ModeGeneral QueryMode = "general"
	ModeProject QueryMode = "project"
)

// Valid reports whether m is a known mode.
func (m QueryMode) Valid() bool {
	return m == ModeGeneral || m == ModeProject
}

// ChatMessage is one query/response pair. Immutable once created.
type ChatMessage struct {
	ID        int64  `json:"id,omitempty"`
	Query     string `json:"query"`
	Response  string `json:"response"`
	ProjectID *int64 `json:"project_id,omitempty"`
}

// ChatQueryRequest is the body of POST /api/gpt-query.
// ProjectID is null for general queries.
type ChatQueryRequest struct {
	Query     string `json:"query"`
	ProjectID *int64 `json:"project_id"`
}

// ChatQueryResponse is the body returned by POST /api/gpt-query.
type ChatQueryResponse struct {
	Response string `json:"response"`
}

// ChatListResponse is the body returned by GET /api/get-chats.
type ChatListResponse struct {
	Chats []ChatMessage `json:"chats"`
}
