package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/pmproxy/pkg/logger"
)

var _ = Describe("Logger", func() {
	var buf *bytes.Buffer
	var log logger.Logger

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = logger.New(buf)
	})

	Context("level filtering", func() {
		It("defaults to InfoLevel", func() {
			Expect(log.GetLevel()).To(Equal(logger.InfoLevel))
		})

		It("drops entries below the configured level", func() {
			log.SetLevel(logger.WarnLevel)
			log.Info("should not appear")
			Expect(buf.Len()).To(Equal(0))
		})

		It("emits entries at or above the configured level", func() {
			log.SetLevel(logger.WarnLevel)
			log.Warning("should appear")
			Expect(buf.Len()).To(BeNumerically(">", 0))
		})
	})

	Context("message formatting", func() {
		It("writes a json line containing the formatted message", func() {
			log.Info("hello %s", "world")

			var out map[string]interface{}
			Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
			Expect(out["message"]).To(Equal("hello world"))
		})
	})

	Context("fields", func() {
		It("merges logger-level fields into every entry", func() {
			log.SetFields(logger.NewFields().Add("component", "test"))
			log.Info("tagged")

			var out map[string]interface{}
			Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
			Expect(out["component"]).To(Equal("test"))
		})
	})

	Context("entry", func() {
		It("carries attached errors into the log line", func() {
			e := log.Entry(logger.ErrorLevel, "failed")
			e.ErrorAdd(true, nil, os.ErrClosed)
			e.Log()

			Expect(buf.String()).To(ContainSubstring("file already closed"))
		})

		It("is a no-op at NilLevel", func() {
			e := log.Entry(logger.NilLevel, "hidden")
			e.Log()
			Expect(buf.Len()).To(Equal(0))
		})
	})

	Context("clone", func() {
		It("shares the backend but can diverge on level", func() {
			clone := log.Clone()
			clone.SetLevel(logger.DebugLevel)

			Expect(log.GetLevel()).To(Equal(logger.InfoLevel))
			Expect(clone.GetLevel()).To(Equal(logger.DebugLevel))
		})
	})
})

var _ = Describe("HookFile", func() {
	It("creates missing parent directories and appends entries", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "nested", "pmproxy.log")

		h, err := logger.NewHookFile(path, true, 0644, logger.InfoLevel)
		Expect(err).ToNot(HaveOccurred())
		defer func() { _ = h.Close() }()

		n, err := h.Write([]byte("line\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(len("line\n")))

		_, statErr := os.Stat(path)
		Expect(statErr).ToNot(HaveOccurred())
	})

	It("rejects an empty path", func() {
		_, err := logger.NewHookFile("", false, 0644)
		Expect(err).To(HaveOccurred())
	})
})
