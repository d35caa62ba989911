package extractworker_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestExtractworker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extractworker Suite")
}
