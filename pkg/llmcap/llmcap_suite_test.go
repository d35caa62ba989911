package llmcap_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLlmcap(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Llmcap Suite")
}
