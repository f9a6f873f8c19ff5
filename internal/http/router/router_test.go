package router_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YushiOMOTE/buddy/internal/http/router"
	"github.com/YushiOMOTE/buddy/internal/service"
)

type stubDeliveries struct {
	calls int
}

func (s *stubDeliveries) Handle(ctx context.Context, header http.Header, body []byte) (*service.DeliveryResult, error) {
	s.calls++
	return &service.DeliveryResult{}, nil
}

var _ = Describe("SetupRoutes", func() {
	var (
		engine     *gin.Engine
		deliveries *stubDeliveries
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		deliveries = &stubDeliveries{}
		router.SetupRoutes(engine, deliveries)
	})

	It("serves the health check", func() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("routes LINE deliveries to the delivery service", func() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/line", bytes.NewBufferString(`{}`)))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(deliveries.calls).To(Equal(1))
	})

	It("does not accept GET on the webhook", func() {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhooks/line", nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
