//go:build integration && !windows

package integration

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestActmonIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Actmon Integration Suite")
}
