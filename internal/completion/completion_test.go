package completion_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/YushiOMOTE/buddy/internal/completion"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := completion.New(completion.Config{Provider: completion.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := completion.New(completion.Config{Provider: "cohere", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported completion provider")))
	})
})

var _ = Describe("OpenAI completer", func() {
	var (
		server  *httptest.Server
		request map[string]any
		path    string
		reply   string
	)

	BeforeEach(func() {
		request = nil
		reply = `{
			"id": "cmpl-1",
			"object": "text_completion",
			"created": 1,
			"model": "gpt-3.5-turbo-instruct",
			"choices": [
				{"text": "  hi there\n", "index": 0, "finish_reason": "stop", "logprobs": null},
				{"text": "second", "index": 1, "finish_reason": "stop", "logprobs": null}
			],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &request)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(reply))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the first choice trimmed", func() {
		c, err := completion.New(completion.Config{APIKey: "k", BaseURL: server.URL + "/v1/"})
		Expect(err).NotTo(HaveOccurred())

		text, err := c.Complete(context.Background(), "P\n\nUserU1: hello\n\nAI: ")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hi there"))

		Expect(path).To(HaveSuffix("/completions"))
		Expect(request).To(HaveKeyWithValue("prompt", "P\n\nUserU1: hello\n\nAI: "))
		Expect(request).To(HaveKeyWithValue("model", "gpt-3.5-turbo-instruct"))
		Expect(request).To(HaveKeyWithValue("temperature", 0.1))
		Expect(request).To(HaveKeyWithValue("max_tokens", 2048.0))
	})

	It("fails when no choices are returned", func() {
		reply = `{"id": "cmpl-2", "object": "text_completion", "created": 1, "model": "m", "choices": [], "usage": {"prompt_tokens": 1, "completion_tokens": 0, "total_tokens": 1}}`
		c, err := completion.New(completion.Config{APIKey: "k", BaseURL: server.URL + "/v1/"})
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Complete(context.Background(), "P")
		Expect(err).To(MatchError(ContainSubstring("no choices")))
	})
})

var _ = Describe("Anthropic completer", func() {
	var (
		server *httptest.Server
		path   string
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-sonnet-4-5",
				"content": [{"type": "text", "text": " hi there "}],
				"stop_reason": "end_turn",
				"stop_sequence": null,
				"usage": {"input_tokens": 5, "output_tokens": 2}
			}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("returns the text content trimmed", func() {
		c, err := completion.New(completion.Config{Provider: completion.ProviderAnthropic, APIKey: "k", BaseURL: server.URL + "/"})
		Expect(err).NotTo(HaveOccurred())

		text, err := c.Complete(context.Background(), "P\n\nUserU1: hello\n\nAI: ")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hi there"))
		Expect(path).To(HaveSuffix("/messages"))
	})
})
