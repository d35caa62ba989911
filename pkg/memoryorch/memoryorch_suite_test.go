package memoryorch

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMemoryorch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memoryorch Suite")
}
