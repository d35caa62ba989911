package claimorch

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestClaimorch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Claimorch Suite")
}
