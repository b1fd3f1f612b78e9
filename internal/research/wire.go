package research

import (
	json "github.com/goccy/go-json"
)

// Messages API request/response shapes. Assistant content is kept as raw
// JSON so tool-use blocks survive a pause_turn round trip untouched.

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func textMessage(role, text string) message {
	raw, _ := json.Marshal(text)

	return message{Role: role, Content: raw}
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type toolSpec struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	System      []systemBlock `json:"system,omitempty"`
	Tools       []toolSpec    `json:"tools,omitempty"`
	Messages    []message     `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messagesResponse struct {
	Content    json.RawMessage `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      usage           `json:"usage"`
}

// text joins every text block in the response content.
func (r *messagesResponse) text() string {
	var blocks []contentBlock
	if err := json.Unmarshal(r.Content, &blocks); err != nil {
		return ""
	}

	var out string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += b.Text
		}
	}

	return out
}

// Message Batches API shapes.

type batchRequestItem struct {
	CustomID string          `json:"custom_id"`
	Params   messagesRequest `json:"params"`
}

type batchCreateRequest struct {
	Requests []batchRequestItem `json:"requests"`
}

type requestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

type batchResponse struct {
	ID               string        `json:"id"`
	ProcessingStatus string        `json:"processing_status"`
	RequestCounts    requestCounts `json:"request_counts"`
	ResultsURL       string        `json:"results_url"`
}

type batchResultEntry struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string           `json:"type"`
		Message messagesResponse `json:"message"`
	} `json:"result"`
}
