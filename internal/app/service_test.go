package service_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/userapi/internal/app"
	"github.com/okian/userapi/internal/config"
	"github.com/okian/userapi/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.LiveReload = false
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

func get(client *http.Client, url string) (int, string) {
	resp, err := client.Get(url)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp.StatusCode, string(b)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then nothing should be built yet", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Handler(), ShouldBeNil)
			So(svc.Description(), ShouldBeNil)
			So(svc.Addr(), ShouldEqual, "0.0.0.0:3000")
		})

		Convey("Then stopping it should be a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Build(t *testing.T) {
	Convey("Given a built service", t, func() {
		svc := service.New(service.WithConfig(testConfig()), service.WithLogger(logger.Nop()))
		So(svc.Build(context.Background()), ShouldBeNil)

		Convey("Then the handler and description should exist", func() {
			So(svc.Handler(), ShouldNotBeNil)
			So(svc.Description().Paths(), ShouldResemble, []string{"/upload", "/user", "/user/{id}"})
		})

		Convey("Then building again should keep the same handler", func() {
			h := svc.Handler()
			So(svc.Build(context.Background()), ShouldBeNil)
			So(svc.Handler(), ShouldEqual, h)
		})

		Convey("Then stats should report it as not started", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeFalse)
			So(stats["live_reload"], ShouldBeFalse)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithConfig(testConfig()), service.WithLogger(logger.Nop()))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		base := "http://" + svc.Addr()
		client := &http.Client{Timeout: 5 * time.Second}

		Convey("Then it should bind an ephemeral port", func() {
			So(svc.Addr(), ShouldNotEndWith, ":0")
			So(svc.GetStats()["started"], ShouldBeTrue)
		})

		Convey("Then it should serve the landing page and the API", func() {
			status, body := get(client, base+"/")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldEqual, "<html><body><h1>Check Source test</h1></body></html>")

			status, body = get(client, base+"/user/9")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, `"id":9`)

			status, _ = get(client, base+"/api-docs/openapi.yaml")
			So(status, ShouldEqual, http.StatusOK)
		})

		Convey("Then starting again should be a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("When it is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the port should stop accepting requests", func() {
				_, err := client.Get(base + "/")
				So(err, ShouldNotBeNil)
			})

			Convey("Then no serve error should be reported", func() {
				select {
				case err := <-svc.Errors():
					So(err, ShouldBeNil)
				default:
				}
			})
		})
	})
}

func TestService_Bind(t *testing.T) {
	Convey("Given a port that is already taken", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer ln.Close()

		cfg := testConfig()
		cfg.Port = ln.Addr().(*net.TCPAddr).Port
		svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Nop()))

		Convey("Then Start should fail with a bind error", func() {
			err := svc.Start(context.Background())
			So(err, ShouldNotBeNil)
			So(errors.Is(err, service.ErrBind), ShouldBeTrue)
		})
	})

	Convey("Given an injected listener", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		svc := service.New(
			service.WithConfig(testConfig()),
			service.WithLogger(logger.Nop()),
			service.WithListener(ln),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop(context.Background())

		Convey("Then it should serve on that listener", func() {
			So(svc.Addr(), ShouldEqual, ln.Addr().String())
		})
	})
}

func TestService_LiveReload(t *testing.T) {
	Convey("Given a service with live reload watching a directory", t, func() {
		dir := t.TempDir()
		cfg := testConfig()
		cfg.LiveReload = true
		cfg.LiveReloadWatch = []string{dir}
		cfg.LiveReloadPoll = 5 * time.Second

		svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Nop()))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		base := "http://" + svc.Addr()
		client := &http.Client{Timeout: 10 * time.Second}

		Convey("Then the landing page should carry the reload script", func() {
			_, body := get(client, base+"/")
			So(body, ShouldStartWith, "<html><body><h1>Check Source test</h1><script>")
			So(body, ShouldEndWith, "</body></html>")
			So(body, ShouldContainSubstring, "/_livereload?instance=")
		})

		Convey("Then a file change should release a waiting poll with 205", func() {
			_, page := get(client, base+"/")
			start := strings.Index(page, "/_livereload?instance=")
			So(start, ShouldBeGreaterThan, 0)
			end := strings.Index(page[start:], `"`)
			endpoint := page[start : start+end]

			result := make(chan int, 1)
			go func() {
				resp, err := client.Get(base + endpoint)
				if err != nil {
					result <- 0
					return
				}
				resp.Body.Close()
				result <- resp.StatusCode
			}()

			time.Sleep(200 * time.Millisecond)
			So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o600), ShouldBeNil)

			select {
			case status := <-result:
				So(status, ShouldEqual, http.StatusResetContent)
			case <-time.After(5 * time.Second):
				So("poll was not released", ShouldBeEmpty)
			}
		})

		Convey("Then shutdown should release waiting polls", func() {
			result := make(chan int, 1)
			go func() {
				resp, err := client.Get(base + "/_livereload")
				if err != nil {
					result <- 0
					return
				}
				resp.Body.Close()
				result <- resp.StatusCode
			}()
			time.Sleep(200 * time.Millisecond)
			So(svc.Stop(ctx), ShouldBeNil)

			select {
			case status := <-result:
				So(status, ShouldBeIn, []int{http.StatusNoContent, http.StatusResetContent})
			case <-time.After(5 * time.Second):
				So("poll was not released", ShouldBeEmpty)
			}
		})
	})
}
