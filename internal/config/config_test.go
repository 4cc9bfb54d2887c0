package config_test

import (
	"testing"
	"time"

	"github.com/okian/userapi/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Host, convey.ShouldEqual, "0.0.0.0")
			convey.So(cfg.Port, convey.ShouldEqual, 3000)
			convey.So(cfg.Addr(), convey.ShouldEqual, "0.0.0.0:3000")
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 2<<20)
			convey.So(cfg.RequireFileName, convey.ShouldBeFalse)
			convey.So(cfg.LiveReload, convey.ShouldBeTrue)
			convey.So(cfg.LiveReloadPoll, convey.ShouldEqual, 25*time.Second)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then Addr should bracket IPv6 hosts", func() {
			cfg.Host = "::1"
			cfg.Port = 4000
			convey.So(cfg.Addr(), convey.ShouldEqual, "[::1]:4000")
		})
	})
}
