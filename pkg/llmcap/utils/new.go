// Package llmcaputils is the llmcap utility package.
package llmcaputils

import (
	"fmt"

	"github.com/loomware/memstate/pkg/llmcap"
	"github.com/loomware/memstate/pkg/llmcap/httpcaller"
	"github.com/loomware/memstate/pkg/llmcap/nop"
)

type NewCallerOpts struct {
	ProviderType string
	BaseURL      string
	APIKey       string
	Model        string
}

func NewCaller(o *NewCallerOpts) (llmcap.Caller, error) {
	switch o.ProviderType {
	case "openai", "http":
		return httpcaller.New(httpcaller.Config{
			BaseURL: o.BaseURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		}), nil
	case "", "none":
		return nop.New(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
