package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const systemPrompt = `You are a helpful assistant for an online car dealership.
Help the shopper narrow down the inventory by suggesting search filters.
When the shopper's request implies a change to the search filters, end your
reply with a fenced json block containing a single object under the key
"filters", for example:
` + "```json\n{\"filters\": {\"bodyStyle\": \"suv\", \"maxPrice\": 40000}}\n```" + `
Only include the block when the filters should change.`

type chatRequest struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversationId,omitempty"`
	CurrentFilters json.RawMessage `json:"currentFilters,omitempty"`
	GuidedMode     *bool           `json:"guidedMode,omitempty"`
}

type chatResponse struct {
	Response       string          `json:"response"`
	ConversationID string          `json:"conversationId"`
	UpdatedFilters json.RawMessage `json:"updatedFilters,omitempty"`
	GuidedMode     bool            `json:"guidedMode"`
}

// Handler serves POST /api/chat. Each request is pinned to a thread; the
// full thread history is replayed to the model so follow-ups stay
// coherent.
type Handler struct {
	llm     LLM
	threads *Manager
}

func NewHandler(llm LLM, threads *Manager) *Handler {
	return &Handler{llm: llm, threads: threads}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	thread := h.threads.GetOrCreate(req.ConversationID)
	if req.GuidedMode != nil {
		h.threads.SetGuidedMode(thread.ID, *req.GuidedMode)
		thread.GuidedMode = *req.GuidedMode
	}

	userContent := req.Message
	if len(req.CurrentFilters) > 0 {
		userContent = fmt.Sprintf("%s\n\nCurrent search filters: %s", req.Message, string(req.CurrentFilters))
	}

	messages := append([]Message{{Role: RoleSystem, Content: systemPrompt}}, h.threads.History(thread.ID)...)
	messages = append(messages, Message{Role: RoleUser, Content: userContent})

	reply, err := h.llm.Generate(r.Context(), messages)
	if err != nil {
		log.Error().Str("component", "chat").Str("conversation_id", thread.ID).Err(err).Msg("completion failed")
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}

	text, filters := extractFilters(reply)
	h.threads.Append(thread.ID, Message{Role: RoleUser, Content: userContent})
	h.threads.Append(thread.ID, Message{Role: RoleAssistant, Content: reply})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{
		Response:       text,
		ConversationID: thread.ID,
		UpdatedFilters: filters,
		GuidedMode:     thread.GuidedMode,
	})
}

// extractFilters splits an assistant reply into display text and the
// optional filter snapshot carried in a trailing fenced json block.
func extractFilters(reply string) (string, json.RawMessage) {
	start := strings.LastIndex(reply, "```json")
	if start < 0 {
		return strings.TrimSpace(reply), nil
	}
	rest := reply[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(reply), nil
	}
	var payload struct {
		Filters json.RawMessage `json:"filters"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &payload); err != nil || len(payload.Filters) == 0 {
		return strings.TrimSpace(reply), nil
	}
	text := strings.TrimSpace(reply[:start] + rest[end+len("```"):])
	return text, payload.Filters
}
