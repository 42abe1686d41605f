package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/llm"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
)

func TestGenerate(t *testing.T) {
	var body struct {
		Model          string         `json:"model"`
		ResponseFormat map[string]any `json:"response_format"`
		Messages       []struct {
			Role    string        `json:"role"`
			Content []contentPart `json:"content"`
		} `json:"messages"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"contract_schedule\":{}} "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
	out, err := c.Generate(context.Background(), llm.GenerateRequest{
		Parts: []llm.Part{
			llm.TextPart("페이지"),
			llm.ImagePart(parse.Image{MIMEType: "image/png", Data: []byte("png")}),
		},
		JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"contract_schedule":{}}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.Equal(t, "json_object", body.ResponseFormat["type"])

	require.Len(t, body.Messages, 1)
	content := body.Messages[0].Content
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].Type)
	assert.Equal(t, "image_url", content[1].Type)
	assert.Equal(t, llm.DataURL("image/png", []byte("png")), content[1].ImageURL.URL)
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Generate(context.Background(), llm.GenerateRequest{Parts: []llm.Part{llm.TextPart("x")}})
	assert.Error(t, err)
}
