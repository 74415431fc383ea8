package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/okian/gisc/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.Analysis.Top, convey.ShouldEqual, 10)
			convey.So(cfg.Analysis.Degree, convey.ShouldEqual, 2)
			convey.So(cfg.Analysis.Window, convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.Analysis.DeviationThreshold, convey.ShouldEqual, 10)
			convey.So(cfg.Analysis.Workers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Genuineness.MaxStdDev, convey.ShouldEqual, 5)
			convey.So(cfg.Output.Format, convey.ShouldEqual, "html")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			key    string
			mutate func(*config.Config)
		}{
			{"store.driver", func(c *config.Config) { c.Store.Driver = "mongo" }},
			{"analysis.degree", func(c *config.Config) { c.Analysis.Degree = -1 }},
			{"analysis.window", func(c *config.Config) { c.Analysis.Window = time.Hour }},
			{"analysis.significance", func(c *config.Config) { c.Analysis.Significance = "pvalue" }},
			{"analysis.workers", func(c *config.Config) { c.Analysis.Workers = 0 }},
			{"genuineness.strategy", func(c *config.Config) { c.Genuineness.Strategy = "entropy" }},
			{"output.format", func(c *config.Config) { c.Output.Format = "png" }},
			{"log_format", func(c *config.Config) { c.LogFormat = "xml" }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.key+" is invalid", func() {
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation names the key", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.key)
				})
			})
		}

		convey.Convey("When the output format is htm in upper case", func() {
			cfg.Output.Format = "HTM"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When dry-run is set without an output dir", func() {
			cfg.Output.Dir = ""
			cfg.Output.DryRun = true
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Serve.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Import.DedupeSize, convey.ShouldEqual, 500_000)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("GISC_LOG_LEVEL", "debug")
			_ = os.Setenv("GISC_ANALYSIS__DEGREE", "1")
			_ = os.Setenv("GISC_ANALYSIS__DEVIATION_THRESHOLD", "1.5")
			_ = os.Setenv("GISC_SERVE__REFRESH_INTERVAL", "5m")
			_ = os.Setenv("GISC_STORE__DRIVER", "memory")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then nested keys are overridden", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Analysis.Degree, convey.ShouldEqual, 1)
				convey.So(cfg.Analysis.DeviationThreshold, convey.ShouldEqual, 1.5)
				convey.So(cfg.Serve.RefreshInterval, convey.ShouldEqual, 5*time.Minute)
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.Analysis.Top, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading from a YAML file", func() {
			path := writeTempConfig(t, `
analysis:
  top: 3
  language: Go
  significance: net
genuineness:
  strategy: weighted
  max_stddev: 12.5
output:
  dir: charts
store:
  archives:
    - a.json.gz
    - b.json.gz
`)

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then file values replace defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Analysis.Top, convey.ShouldEqual, 3)
				convey.So(cfg.Analysis.Language, convey.ShouldEqual, "Go")
				convey.So(cfg.Analysis.Significance, convey.ShouldEqual, config.SignificanceNet)
				convey.So(cfg.Genuineness.Strategy, convey.ShouldEqual, config.GenuinenessWeighted)
				convey.So(cfg.Genuineness.MaxStdDev, convey.ShouldEqual, 12.5)
				convey.So(cfg.Output.Dir, convey.ShouldEqual, "charts")
				convey.So(cfg.Store.Archives, convey.ShouldResemble, []string{"a.json.gz", "b.json.gz"})
				convey.So(cfg.Analysis.Degree, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When both file and env are set", func() {
			path := writeTempConfig(t, "analysis:\n  top: 3\n  degree: 3\n")
			_ = os.Setenv("GISC_CONFIG", path)
			_ = os.Setenv("GISC_ANALYSIS__TOP", "7")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Analysis.Top, convey.ShouldEqual, 7)
				convey.So(cfg.Analysis.Degree, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			path := writeTempConfig(t, `invalid: yaml: content: [`)

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			cfg, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gisc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"GISC_CONFIG",
		"GISC_LOG_LEVEL",
		"GISC_ANALYSIS__DEGREE",
		"GISC_ANALYSIS__DEVIATION_THRESHOLD",
		"GISC_ANALYSIS__TOP",
		"GISC_SERVE__REFRESH_INTERVAL",
		"GISC_STORE__DRIVER",
	} {
		_ = os.Unsetenv(key)
	}
}
