package expand_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestExpand(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expand Suite")
}
