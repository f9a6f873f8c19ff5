package otel

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/YushiOMOTE/buddy/core/config"
)

var _ = Describe("Setup", func() {
	It("is disabled without an endpoint", func() {
		tel, err := Setup(context.Background(), config.OTelConfig{ServiceName: "buddy"})
		Expect(err).NotTo(HaveOccurred())
		Expect(tel).To(BeNil())
		Expect(tel.Shutdown(context.Background())).To(Succeed())
	})
})

var _ = Describe("newResource", func() {
	It("carries service and environment attributes", func() {
		res, err := newResource(config.OTelConfig{
			ServiceName:    "buddy",
			ServiceVersion: "1.2.3",
			Environment:    "production",
		})
		Expect(err).NotTo(HaveOccurred())

		set := res.Set()
		name, ok := set.Value(semconv.ServiceNameKey)
		Expect(ok).To(BeTrue())
		Expect(name.AsString()).To(Equal("buddy"))
		env, ok := set.Value(semconv.DeploymentEnvironmentKey)
		Expect(ok).To(BeTrue())
		Expect(env.AsString()).To(Equal("production"))
	})
})

var _ = Describe("parseHeaders", func() {
	It("parses comma separated pairs", func() {
		Expect(parseHeaders("a=1, b = 2,broken")).To(Equal(map[string]string{"a": "1", "b": "2"}))
	})

	It("returns an empty map for an empty string", func() {
		Expect(parseHeaders("")).To(BeEmpty())
	})
})
