package main

import (
	"strings"
	"testing"

	"github.com/feldsher/feldsher/internal/config"
)

func TestBuildChainValidatesCandidates(t *testing.T) {
	tests := []struct {
		name      string
		candidate config.Candidate
		wantErr   string
	}{
		{
			"missing model",
			config.Candidate{Name: "groq", Kind: "compat", APIURL: "https://api.groq.com/openai/v1"},
			"no model",
		},
		{
			"compat without url",
			config.Candidate{Name: "groq", Kind: "compat", Model: "llama-3.3-70b-versatile"},
			"no api_url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildChain([]config.Candidate{tt.candidate})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildChainValidCandidates(t *testing.T) {
	chain, err := buildChain([]config.Candidate{
		{Name: "openai", Kind: "openai", APIKey: "k", Model: "gpt-4o-mini"},
		{Name: "groq", Kind: "compat", APIURL: "https://api.groq.com/openai/v1", APIKey: "k", Model: "llama-3.3-70b-versatile"},
	})
	if err != nil {
		t.Fatalf("buildChain: %v", err)
	}
	if chain.Len() != 2 {
		t.Errorf("candidates = %d, want 2", chain.Len())
	}
}
