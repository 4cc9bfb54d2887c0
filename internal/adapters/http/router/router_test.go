package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/userapi/internal/adapters/http/api"
	"github.com/okian/userapi/internal/adapters/http/livereload"
	"github.com/okian/userapi/internal/adapters/http/router"
	"github.com/okian/userapi/internal/docs"
	"github.com/okian/userapi/internal/route"
	"github.com/okian/userapi/pkg/logger"
)

const landing = "<html><body><h1>Check Source test</h1></body></html>"

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func apiTable() (route.Table, *docs.Description) {
	s, err := api.NewServer()
	if err != nil {
		panic(err)
	}
	table := s.Routes()
	desc, err := docs.Build(context.Background(), docs.Info{Title: "userapi", Version: "0.1.0"}, table, s.Registry())
	if err != nil {
		panic(err)
	}
	return table, desc
}

func newRouter(extra route.Table, opts ...router.Option) *chi.Mux {
	table, desc := apiTable()
	return router.New(context.Background(), append(table, extra...), desc, opts...)
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	Convey("Given the assembled router", t, func() {
		logs := &lockedBuffer{}
		panicky := route.Route{
			Method:  http.MethodGet,
			Pattern: "/boom",
			Handler: func(http.ResponseWriter, *http.Request) { panic("boom") },
		}
		h := newRouter(route.Table{panicky},
			router.WithLogger(logger.New(logs, logger.WithoutCaller())),
			router.WithCORSOrigins("https://app.example.com"),
		)

		Convey("Then / should serve the landing page", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, landing)
		})

		Convey("Then the API operations should be mounted", func() {
			So(do(h, httptest.NewRequest(http.MethodGet, "/user/5", nil)).Code, ShouldEqual, http.StatusOK)

			req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`{"username":"a","email":"b"}`))
			req.Header.Set("Content-Type", "application/json")
			So(do(h, req).Code, ShouldEqual, http.StatusCreated)
		})

		Convey("Then the description should list exactly the API paths", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/api-docs/openapi.json", nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			var doc struct {
				Paths map[string]any `json:"paths"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &doc), ShouldBeNil)
			So(doc.Paths, ShouldHaveLength, 3)
			So(doc.Paths, ShouldContainKey, "/user/{id}")
			So(doc.Paths, ShouldContainKey, "/user")
			So(doc.Paths, ShouldContainKey, "/upload")
		})

		Convey("Then the Swagger UI should be served", func() {
			So(do(h, httptest.NewRequest(http.MethodGet, "/swagger-ui", nil)).Code, ShouldEqual, http.StatusOK)
			So(do(h, httptest.NewRequest(http.MethodGet, "/swagger-ui/", nil)).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then metrics should be exposed", func() {
			do(h, httptest.NewRequest(http.MethodGet, "/user/1", nil))
			w := do(h, httptest.NewRequest(http.MethodGet, router.MetricsPath, nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "userapi_http_requests_total")
		})

		Convey("Then unknown paths should be 404 and wrong methods 405", func() {
			So(do(h, httptest.NewRequest(http.MethodGet, "/nope", nil)).Code, ShouldEqual, http.StatusNotFound)
			So(do(h, httptest.NewRequest(http.MethodDelete, "/user/1", nil)).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then the request id should be echoed or generated", func() {
			req := httptest.NewRequest(http.MethodGet, "/user/1", nil)
			req.Header.Set(router.RequestIDHeader, "req-123")
			So(do(h, req).Header().Get(router.RequestIDHeader), ShouldEqual, "req-123")
			So(do(h, httptest.NewRequest(http.MethodGet, "/user/1", nil)).Header().Get(router.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then requests should be access logged with their id", func() {
			req := httptest.NewRequest(http.MethodGet, "/user/abc", nil)
			req.Header.Set(router.RequestIDHeader, "req-log")
			do(h, req)
			out := logs.String()
			So(out, ShouldContainSubstring, `msg="http request"`)
			So(out, ShouldContainSubstring, "request_id=req-log")
			So(out, ShouldContainSubstring, "status_code=400")
			So(out, ShouldContainSubstring, "level=WARN")
		})

		Convey("Then a panicking handler should be answered with 500", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, "/boom", nil))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal_error"`)
			So(logs.String(), ShouldContainSubstring, `msg="panic recovered"`)
		})

		Convey("Then an allowed origin should pass preflight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/user", nil)
			req.Header.Set("Origin", "https://app.example.com")
			w := do(h, req)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://app.example.com")
			So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, http.MethodPost)
		})

		Convey("Then a foreign origin should be refused", func() {
			req := httptest.NewRequest(http.MethodOptions, "/user", nil)
			req.Header.Set("Origin", "https://evil.example.org")
			w := do(h, req)
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})
	})
}

func TestRouterOptions(t *testing.T) {
	Convey("Given a router with metrics disabled", t, func() {
		h := newRouter(nil, router.WithMetrics(false))

		Convey("Then /metrics should not be mounted", func() {
			So(do(h, httptest.NewRequest(http.MethodGet, router.MetricsPath, nil)).Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a router with live reload", t, func() {
		reloader := livereload.New()
		h := newRouter(nil, router.WithLiveReload(reloader))

		Convey("Then the landing page should carry the reload script", func() {
			body := do(h, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
			So(body, ShouldStartWith, "<html><body><h1>Check Source test</h1><script>")
			So(body, ShouldContainSubstring, reloader.Instance())
		})

		Convey("Then JSON responses should be left alone", func() {
			body := do(h, httptest.NewRequest(http.MethodGet, "/user/3", nil)).Body.String()
			So(strings.TrimSpace(body), ShouldEqual, `{"id":3,"username":"gopher_dev test"}`)
		})

		Convey("Then a stale page should be told to reload", func() {
			w := do(h, httptest.NewRequest(http.MethodGet, reloader.Path()+"?instance=stale", nil))
			So(w.Code, ShouldEqual, http.StatusResetContent)
		})
	})

	Convey("Given a router without live reload", t, func() {
		h := newRouter(nil)

		Convey("Then the poll endpoint should not exist", func() {
			So(do(h, httptest.NewRequest(http.MethodGet, livereload.DefaultPath, nil)).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
