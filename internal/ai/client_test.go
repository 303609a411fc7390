package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukkelmaus/Flox/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key", "test-model")
	c.BaseURL = srv.URL
	return c
}

func chatReply(content string) []byte {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	raw, _ := json.Marshal(reply)
	return raw
}

func TestAssessTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write(chatReply(`{"complexity_score": 3.5, "energy_level": "high", "suggestions": ["split it"]}`))
	})

	got, err := client.AssessTask(context.Background(), "Write report", "quarterly numbers")
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.ComplexityScore)
	assert.Equal(t, models.EnergyHigh, got.EnergyLevel)
	assert.JSONEq(t, `["split it"]`, string(got.SuggestionsJSON))
}

func TestAssessTaskClampsAndDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(`{"complexity_score": 9.1, "energy_level": "extreme", "suggestions": []}`))
	})

	got, err := client.AssessTask(context.Background(), "t", "")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.ComplexityScore)
	assert.Equal(t, models.EnergyMedium, got.EnergyLevel)
}

func TestAssessTaskStripsCodeFence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply("```json\n{\"complexity_score\": 1, \"energy_level\": \"low\", \"suggestions\": []}\n```"))
	})

	got, err := client.AssessTask(context.Background(), "t", "")
	require.NoError(t, err)
	assert.Equal(t, models.EnergyLow, got.EnergyLevel)
}

func TestAssessTaskUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.AssessTask(context.Background(), "t", "")
	assert.Error(t, err)
}
