package config_test

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/loomware/memstate/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Server.DefaultProjectID).To(Equal(defaults.Server.DefaultProjectID))
			Expect(cfg.AI.Mode).To(Equal(defaults.AI.Mode))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[server]
listen = ":9090"

[ai]
mode = "primary_llm"

[primary_llm]
provider = "openai"
model = "gpt-4o-mini"
`
			Expect(os.WriteFile(tmpDir+"/config.toml", []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Listen).To(Equal(":9090"))
			Expect(cfg.AI.Mode).To(Equal("primary_llm"))
			Expect(cfg.PrimaryLLM.Provider).To(Equal("openai"))
			Expect(cfg.PrimaryLLM.Model).To(Equal("gpt-4o-mini"))
			// Untouched fields still fall back to defaults.
			Expect(cfg.Embedding.Model).To(Equal(config.NewDefaultConfig().Embedding.Model))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(tmpDir+"/config.toml", []byte("not valid = [toml"), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})

		It("returns error for unsupported config version", func() {
			Expect(os.WriteFile(tmpDir+"/config.toml", []byte("version = 99"), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Server.Listen = ":7000"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			reloaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Server.Listen).To(Equal(":7000"))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("round-trips a string key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("ai.mode", "simple")).To(Succeed())

			value, err := c.GetConfigValue("ai.mode")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("simple"))
		})

		It("round-trips a uint key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.dimensions", "1536")).To(Succeed())

			value, err := c.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("1536"))
		})

		It("round-trips a bool key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("ai.use_retrieval_expand", "true")).To(Succeed())

			value, err := c.GetConfigValue("ai.use_retrieval_expand")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("true"))
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("nope.nope", "x")).To(HaveOccurred())
			_, err = c.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("returns error for invalid uint value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("embedding.dimensions", "not-a-number")).To(HaveOccurred())
		})

		It("preserves existing values when setting a new key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("server.listen", ":7777")).To(Succeed())
			Expect(c.SetConfigValue("ai.mode", "secondary_llm")).To(Succeed())

			listen, err := c.GetConfigValue("server.listen")
			Expect(err).NotTo(HaveOccurred())
			Expect(listen).To(Equal(":7777"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("includes every declared key exactly once", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"server.listen", "storage.postgres_dsn", "ai.mode",
				"primary_llm.provider", "embedding.dimensions",
			))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
			}
		})
	})

	Describe("IsValidConfigKey", func() {
		It("returns true for valid keys", func() {
			Expect(config.IsValidConfigKey("ai.mode")).To(BeTrue())
		})

		It("returns false for invalid keys", func() {
			Expect(config.IsValidConfigKey("bogus.key")).To(BeFalse())
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the openai preset", func() {
		cfg, err := config.PresetConfig("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.PrimaryLLM.Provider).To(Equal("openai"))
		Expect(cfg.AI.Mode).To(Equal("primary_llm"))
	})

	It("returns the ollama preset with an embedding provider", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Dimensions).To(BeNumerically("==", 768))
	})

	It("returns an error for unknown presets", func() {
		_, err := config.PresetConfig("bogus")
		Expect(err).To(HaveOccurred())
	})
})
