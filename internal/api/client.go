package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"lumina-cli/internal/chat"
	"lumina-cli/internal/config"
	"lumina-cli/internal/stream"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	userID     string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Server, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		userID: cfg.UserID,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
}

// --- Sessions ---

// SessionRow is a session as the backend ships it. Times are unix
// milliseconds.
type SessionRow struct {
	ID                 string `json:"id"`
	Title              string `json:"sessionTitle"`
	CreateTime         int64  `json:"createTime"`
	LastMessageContent string `json:"lastMessageContent,omitempty"`
	LastMessageTime    int64  `json:"lastMessageTime,omitempty"`
}

// ToSession converts a wire row to the domain form.
func (r SessionRow) ToSession() chat.Session {
	s := chat.Session{
		ID:         r.ID,
		Title:      r.Title,
		CreateTime: time.UnixMilli(r.CreateTime),
	}
	if r.LastMessageContent != "" || r.LastMessageTime != 0 {
		s.LastMessage = &chat.Preview{
			Content: r.LastMessageContent,
			Time:    time.UnixMilli(r.LastMessageTime),
		}
	}
	return s
}

type sessionListResponse struct {
	Code int          `json:"code"`
	Rows []SessionRow `json:"rows"`
}

func (c *Client) ListSessions() ([]chat.Session, error) {
	params := url.Values{}
	params.Set("userId", c.userID)

	var resp sessionListResponse
	if err := c.doJSON("GET", "/api/sessions?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("server error code %d", resp.Code)
	}

	sessions := make([]chat.Session, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		sessions = append(sessions, row.ToSession())
	}
	return sessions, nil
}

type createSessionRequest struct {
	UserID         string `json:"userId"`
	SessionContent string `json:"sessionContent"`
	SessionTitle   string `json:"sessionTitle"`
}

type createSessionResponse struct {
	Code int    `json:"code"`
	Data string `json:"data"`
}

// CreateSession registers a new conversation and returns its id. The
// first prompt doubles as content seed and (truncated server-side)
// title.
func (c *Client) CreateSession(firstPrompt string) (string, error) {
	reqBody := createSessionRequest{
		UserID:         c.userID,
		SessionContent: firstPrompt,
		SessionTitle:   firstPrompt,
	}
	var resp createSessionResponse
	if err := c.doJSON("POST", "/api/sessions", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 || resp.Data == "" {
		return "", fmt.Errorf("session create failed, code %d", resp.Code)
	}
	return resp.Data, nil
}

func (c *Client) DeleteSession(sessionID string) error {
	var resp struct {
		Code int `json:"code"`
	}
	if err := c.doJSON("DELETE", "/api/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("session delete failed, code %d", resp.Code)
	}
	return nil
}

// --- Messages ---

// MessageRow is a persisted message as the backend ships it.
type MessageRow struct {
	ID          string              `json:"id"`
	Role        string              `json:"role"`
	SessionID   string              `json:"sessionId"`
	UserID      string              `json:"userId"`
	Content     string              `json:"content"`
	Reasoning   string              `json:"reasoningContent,omitempty"`
	CreateTime  int64               `json:"createTime"`
	Files       []stream.ParsedFile `json:"files,omitempty"`
	ModelName   string              `json:"modelName,omitempty"`
	TotalTokens int                 `json:"totalTokens,omitempty"`
}

func (r MessageRow) ToMessage() chat.Message {
	return chat.Message{
		ID:          r.ID,
		Role:        r.Role,
		SessionID:   r.SessionID,
		UserID:      r.UserID,
		Content:     r.Content,
		Reasoning:   r.Reasoning,
		CreateTime:  time.UnixMilli(r.CreateTime),
		Files:       r.Files,
		ModelName:   r.ModelName,
		TotalTokens: r.TotalTokens,
	}
}

type messageListResponse struct {
	Code int          `json:"code"`
	Rows []MessageRow `json:"rows"`
}

func (c *Client) ListMessages(sessionID string) ([]chat.Message, error) {
	params := url.Values{}
	params.Set("userId", c.userID)
	params.Set("sessionId", sessionID)

	var resp messageListResponse
	if err := c.doJSON("GET", "/api/messages?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("server error code %d", resp.Code)
	}

	msgs := make([]chat.Message, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		msgs = append(msgs, row.ToMessage())
	}
	return msgs, nil
}

// --- Models ---

type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

type modelListResponse struct {
	Code int         `json:"code"`
	Rows []ModelInfo `json:"rows"`
}

func (c *Client) ListModels() ([]ModelInfo, error) {
	var resp modelListResponse
	if err := c.doJSON("GET", "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("server error code %d", resp.Code)
	}
	return resp.Rows, nil
}

// --- Knowledge bases ---

type KnowledgeBase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DocCount    int    `json:"docCount,omitempty"`
}

type knowledgeBaseListResponse struct {
	Code int             `json:"code"`
	Rows []KnowledgeBase `json:"rows"`
}

func (c *Client) ListKnowledgeBases() ([]KnowledgeBase, error) {
	params := url.Values{}
	params.Set("userId", c.userID)

	var resp knowledgeBaseListResponse
	if err := c.doJSON("GET", "/api/knowledge-bases?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("server error code %d", resp.Code)
	}
	return resp.Rows, nil
}

type createKnowledgeBaseRequest struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Client) CreateKnowledgeBase(name, description string) (string, error) {
	reqBody := createKnowledgeBaseRequest{UserID: c.userID, Name: name, Description: description}
	var resp struct {
		Code int    `json:"code"`
		Data string `json:"data"`
	}
	if err := c.doJSON("POST", "/api/knowledge-bases", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 || resp.Data == "" {
		return "", fmt.Errorf("knowledge base create failed, code %d", resp.Code)
	}
	return resp.Data, nil
}

func (c *Client) DeleteKnowledgeBase(id string) error {
	var resp struct {
		Code int `json:"code"`
	}
	if err := c.doJSON("DELETE", "/api/knowledge-bases/"+url.PathEscape(id), nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("knowledge base delete failed, code %d", resp.Code)
	}
	return nil
}

// --- MCP server registry ---

type MCPServer struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	URL     string            `json:"url,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

type mcpServerListResponse struct {
	Code int         `json:"code"`
	Rows []MCPServer `json:"rows"`
}

func (c *Client) ListMCPServers() ([]MCPServer, error) {
	params := url.Values{}
	params.Set("userId", c.userID)

	var resp mcpServerListResponse
	if err := c.doJSON("GET", "/api/mcp-servers?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("server error code %d", resp.Code)
	}
	return resp.Rows, nil
}

func (c *Client) AddMCPServer(server MCPServer) (string, error) {
	body := struct {
		UserID string `json:"userId"`
		MCPServer
	}{UserID: c.userID, MCPServer: server}

	var resp struct {
		Code int    `json:"code"`
		Data string `json:"data"`
	}
	if err := c.doJSON("POST", "/api/mcp-servers", body, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 || resp.Data == "" {
		return "", fmt.Errorf("mcp server add failed, code %d", resp.Code)
	}
	return resp.Data, nil
}

func (c *Client) RemoveMCPServer(id string) error {
	var resp struct {
		Code int `json:"code"`
	}
	if err := c.doJSON("DELETE", "/api/mcp-servers/"+url.PathEscape(id), nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("mcp server remove failed, code %d", resp.Code)
	}
	return nil
}

// --- Generic JSON helper ---

func (c *Client) doJSON(method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil && method != "GET" {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
