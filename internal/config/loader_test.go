package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/userapi/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "0.0.0.0:3000")
				convey.So(cfg.LiveReloadWatch, convey.ShouldBeNil)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("USERAPI_HOST", "127.0.0.1")
			_ = os.Setenv("USERAPI_PORT", "4000")
			_ = os.Setenv("USERAPI_MAX_UPLOAD_BYTES", "1024")
			_ = os.Setenv("USERAPI_REQUIRE_FILE_NAME", "true")
			_ = os.Setenv("USERAPI_LIVE_RELOAD", "false")
			_ = os.Setenv("USERAPI_LIVE_RELOAD_POLL", "5s")
			_ = os.Setenv("USERAPI_CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "127.0.0.1:4000")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1024)
				convey.So(cfg.RequireFileName, convey.ShouldBeTrue)
				convey.So(cfg.LiveReload, convey.ShouldBeFalse)
				convey.So(cfg.LiveReloadPoll, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"http://a.test", "http://b.test"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
host: "127.0.0.1"
port: 4000
log_level: debug
live_reload_watch:
  - ./static
  - ./templates
docs_title: "Demo API"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("USERAPI_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr(), convey.ShouldEqual, "127.0.0.1:4000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LiveReloadWatch, convey.ShouldResemble, []string{"./static", "./templates"})
				convey.So(cfg.DocsTitle, convey.ShouldEqual, "Demo API")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 2<<20) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("host: \"127.0.0.1\"\nport: 4000\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("USERAPI_CONFIG", tmpFile)
			_ = os.Setenv("USERAPI_PORT", "5000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Host, convey.ShouldEqual, "127.0.0.1") // From file
				convey.So(cfg.Port, convey.ShouldEqual, 5000)        // Overridden by env
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("USERAPI_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("USERAPI_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty host", func() {
			_ = os.Setenv("USERAPI_HOST", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "host must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out of range port", func() {
			_ = os.Setenv("USERAPI_PORT", "70000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("USERAPI_PORT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the upload dir does not exist", func() {
			_ = os.Setenv("USERAPI_UPLOAD_DIR", "/non/existent/dir")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the upload dir exists", func() {
			dir := t.TempDir()
			_ = os.Setenv("USERAPI_UPLOAD_DIR", dir)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be accepted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.UploadDir, convey.ShouldEqual, dir)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"USERAPI_CONFIG",
		"USERAPI_HOST",
		"USERAPI_PORT",
		"USERAPI_LOG_LEVEL",
		"USERAPI_UPLOAD_DIR",
		"USERAPI_MAX_UPLOAD_BYTES",
		"USERAPI_REQUIRE_FILE_NAME",
		"USERAPI_LIVE_RELOAD",
		"USERAPI_LIVE_RELOAD_POLL",
		"USERAPI_LIVE_RELOAD_WATCH",
		"USERAPI_CORS_ALLOWED_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "userapi-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
