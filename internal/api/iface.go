package api

import "lumina-cli/internal/chat"

// LuminaAPI defines the interface for the backend client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type LuminaAPI interface {
	SendMessageStream(req ChatRequest, cb StreamCallback) error
	ListSessions() ([]chat.Session, error)
	CreateSession(firstPrompt string) (string, error)
	DeleteSession(sessionID string) error
	ListMessages(sessionID string) ([]chat.Message, error)
	ListModels() ([]ModelInfo, error)
	ListKnowledgeBases() ([]KnowledgeBase, error)
	CreateKnowledgeBase(name, description string) (string, error)
	DeleteKnowledgeBase(id string) error
	ListMCPServers() ([]MCPServer, error)
	AddMCPServer(server MCPServer) (string, error)
	RemoveMCPServer(id string) error
}
