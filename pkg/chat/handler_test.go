package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	reply    string
	lastSeen []Message
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(_ context.Context, messages []Message) (string, error) {
	s.lastSeen = messages
	return s.reply, nil
}

func TestExtractFiltersFromFencedBlock(t *testing.T) {
	reply := "Here are some SUVs under 40k.\n```json\n{\"filters\": {\"bodyStyle\": \"suv\", \"maxPrice\": 40000}}\n```"
	text, filters := extractFilters(reply)
	require.Equal(t, "Here are some SUVs under 40k.", text)
	require.JSONEq(t, `{"bodyStyle":"suv","maxPrice":40000}`, string(filters))
}

func TestExtractFiltersNoBlock(t *testing.T) {
	text, filters := extractFilters("Just chatting, no filter change.")
	require.Equal(t, "Just chatting, no filter change.", text)
	require.Nil(t, filters)
}

func TestExtractFiltersMalformedBlockKeptAsText(t *testing.T) {
	reply := "Answer.\n```json\nnot valid\n```"
	text, filters := extractFilters(reply)
	require.Equal(t, reply, text)
	require.Nil(t, filters)
}

func postChat(t *testing.T, h *Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestChatCreatesAndReusesThread(t *testing.T) {
	llm := &scriptedLLM{reply: "Hello there."}
	h := NewHandler(llm, NewManager())

	code, first := postChat(t, h, `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, code)
	convID, _ := first["conversationId"].(string)
	require.NotEmpty(t, convID)
	require.Equal(t, "Hello there.", first["response"])

	code, second := postChat(t, h, `{"message":"more","conversationId":"`+convID+`"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, convID, second["conversationId"])

	// history replay: system + first user + first assistant + second user
	require.Len(t, llm.lastSeen, 4)
	require.Equal(t, RoleSystem, llm.lastSeen[0].Role)
	require.Equal(t, RoleAssistant, llm.lastSeen[2].Role)
}

func TestChatReturnsUpdatedFilters(t *testing.T) {
	llm := &scriptedLLM{reply: "Narrowed it down.\n```json\n{\"filters\": {\"fuelType\": \"electric\"}}\n```"}
	h := NewHandler(llm, NewManager())

	code, out := postChat(t, h, `{"message":"electric only","currentFilters":{"bodyStyle":"suv"},"guidedMode":true}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Narrowed it down.", out["response"])
	require.Equal(t, map[string]any{"fuelType": "electric"}, out["updatedFilters"])
	require.Equal(t, true, out["guidedMode"])

	// current filters ride along in the user turn
	last := llm.lastSeen[len(llm.lastSeen)-1]
	require.Contains(t, last.Content, `"bodyStyle":"suv"`)
}

func TestChatRejectsBadRequests(t *testing.T) {
	h := NewHandler(&scriptedLLM{reply: "x"}, NewManager())

	code, _ := postChat(t, h, `{}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = postChat(t, h, `{"message":`)
	require.Equal(t, http.StatusBadRequest, code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
