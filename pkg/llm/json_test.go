package llm

import (
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"metrics": ["transaction_volume"], "group_by": ["region"]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_WithThinkTags(t *testing.T) {
	input := `<think>
The user wants transaction volume grouped by region.
</think>
{"metrics": ["transaction_volume"], "group_by": ["region"]}`

	expected := `{"metrics": ["transaction_volume"], "group_by": ["region"]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_WithSurroundingProse(t *testing.T) {
	input := `Here is the parsed intent:
{"metrics": ["total_deposits"], "group_by": []}
Let me know if you need anything else.`

	expected := `{"metrics": ["total_deposits"], "group_by": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	input := "```json\n{\"metrics\": [\"active_customers\"]}\n```"
	expected := `{"metrics": ["active_customers"]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_BracketsInStrings(t *testing.T) {
	input := `{"filters": ["region IN ('North', 'South') AND note = '[draft]'"], "limit": 5}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_EscapedQuotesInStrings(t *testing.T) {
	input := `{"question": "show \"premium\" customers", "valid": true}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_Array(t *testing.T) {
	input := `[{"metric": "total_deposits"}, {"metric": "total_withdrawals"}]`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("I could not parse the question."); err == nil {
		t.Error("expected error for input with no JSON")
	}
}

func TestExtractJSON_InvalidJSON(t *testing.T) {
	if _, err := ExtractJSON(`{"metrics": ["unclosed"`); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestExtractJSON_EmptyInput(t *testing.T) {
	if _, err := ExtractJSON(""); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Metrics []string `json:"metrics"`
		GroupBy []string `json:"group_by"`
		Limit   int      `json:"limit"`
	}

	input := `<think>working it out</think>{"metrics": ["total_loan_amount"], "group_by": ["region"], "limit": 10}`
	result, err := ParseJSONResponse[payload](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Metrics) != 1 || result.Metrics[0] != "total_loan_amount" {
		t.Errorf("unexpected metrics: %v", result.Metrics)
	}
	if result.Limit != 10 {
		t.Errorf("expected limit 10, got %d", result.Limit)
	}
}

func TestParseJSONResponse_BadPayload(t *testing.T) {
	type payload struct {
		Limit int `json:"limit"`
	}

	if _, err := ParseJSONResponse[payload](`{"limit": "ten"}`); err == nil {
		t.Error("expected unmarshal error for mistyped field")
	}
}
