package llmcap_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/llmcap"
)

// fakeCaller returns a fixed result or error, and records whether it was
// invoked, so tests can assert which legs of a chain actually ran.
type fakeCaller struct {
	result json.RawMessage
	err    error
	called bool
}

func (f *fakeCaller) CallJSON(_ context.Context, _ llmcap.Request) (json.RawMessage, error) {
	f.called = true
	return f.result, f.err
}

var _ = Describe("Chain", func() {
	It("returns the first caller's result when it succeeds", func() {
		first := &fakeCaller{result: json.RawMessage(`{"ok":true}`)}
		second := &fakeCaller{result: json.RawMessage(`{"ok":false}`)}

		raw, err := llmcap.Chain(first, second).CallJSON(context.Background(), llmcap.Request{})
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(MatchJSON(`{"ok":true}`))
		Expect(second.called).To(BeFalse())
	})

	It("falls through to the next caller on error", func() {
		first := &fakeCaller{err: errors.New("boom")}
		second := &fakeCaller{result: json.RawMessage(`{"ok":true}`)}

		raw, err := llmcap.Chain(first, second).CallJSON(context.Background(), llmcap.Request{})
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(MatchJSON(`{"ok":true}`))
		Expect(first.called).To(BeTrue())
		Expect(second.called).To(BeTrue())
	})

	It("returns the last caller's error when every caller fails", func() {
		first := &fakeCaller{err: errors.New("first failed")}
		second := &fakeCaller{err: errors.New("second failed")}

		_, err := llmcap.Chain(first, second).CallJSON(context.Background(), llmcap.Request{})
		Expect(err).To(MatchError("second failed"))
	})

	It("returns ErrNoContent for an empty chain", func() {
		_, err := llmcap.Chain().CallJSON(context.Background(), llmcap.Request{})
		Expect(err).To(MatchError(llmcap.ErrNoContent))
	})

	It("stops early once the context is done, without trying later callers", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		first := &fakeCaller{err: errors.New("boom")}
		second := &fakeCaller{result: json.RawMessage(`{"ok":true}`)}

		_, err := llmcap.Chain(first, second).CallJSON(ctx, llmcap.Request{})
		Expect(err).To(MatchError(context.Canceled))
		Expect(first.called).To(BeTrue())
		Expect(second.called).To(BeFalse())
	})
})
