package llm

import "testing"

func TestNewClient_Ollama(t *testing.T) {
	client, err := NewClient("ollama", "llama3", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	ollamaClient, ok := client.(*OllamaClient)
	if !ok {
		t.Fatalf("expected OllamaClient, got %T", client)
	}
	if ollamaClient.baseURL != defaultOllamaBaseURL {
		t.Errorf("baseURL = %q, want %q", ollamaClient.baseURL, defaultOllamaBaseURL)
	}
}

func TestNewClient_LMStudio(t *testing.T) {
	client, err := NewClient("lmstudio", "llama3", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	lmStudioClient, ok := client.(*OpenAIClient)
	if !ok {
		t.Fatalf("expected OpenAIClient, got %T", client)
	}
	if lmStudioClient.baseURL != defaultLMStudioBaseURL {
		t.Errorf("baseURL = %q, want %q", lmStudioClient.baseURL, defaultLMStudioBaseURL)
	}
	if lmStudioClient.name != ProviderLMStudio {
		t.Errorf("name = %q, want %q", lmStudioClient.name, ProviderLMStudio)
	}
}

func TestNewClient_OpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	client, err := NewClient("openai", "", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	openAIClient, ok := client.(*OpenAIClient)
	if !ok {
		t.Fatalf("expected OpenAIClient, got %T", client)
	}
	if openAIClient.model != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", openAIClient.model, defaultOpenAIModel)
	}
}

func TestNewClient_OpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewClient("openai", "gpt-4o", ""); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

func TestNewClient_DeepSeek(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "ds-test")

	client, err := NewClient("deepseek", "", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	ds, ok := client.(*DeepSeekClient)
	if !ok {
		t.Fatalf("expected DeepSeekClient, got %T", client)
	}
	if ds.model != defaultDeepSeekModel || ds.baseURL != defaultDeepSeekBaseURL {
		t.Errorf("client = %+v", ds)
	}
}

func TestNewClient_DeepSeekMissingKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")

	if _, err := NewClient("deepseek", "", ""); err == nil {
		t.Fatal("expected error when DEEPSEEK_API_KEY is unset")
	}
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient("unknown", "model", "")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
