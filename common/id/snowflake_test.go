package id_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YushiOMOTE/buddy/common/id"
)

var _ = Describe("Snowflake ids", func() {
	It("generates increasing ids without Init", func() {
		first := id.New()
		second := id.New()
		Expect(second).To(BeNumerically(">", first))
	})

	It("rejects node ids outside the snowflake range", func() {
		Expect(id.Init(2048)).NotTo(Succeed())
		Expect(id.Init(7)).To(Succeed())
		Expect(id.New()).To(BeNumerically(">", 0))
	})
})
