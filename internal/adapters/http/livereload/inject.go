package livereload

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
)

var closingBody = []byte("</body>")

// Middleware injects the reload script into HTML responses to GET requests.
// Other responses pass through untouched.
func (r *Reloader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet || req.URL.Path == r.path {
			next.ServeHTTP(w, req)
			return
		}
		iw := &injectingWriter{ResponseWriter: w, script: r.script()}
		next.ServeHTTP(iw, req)
		iw.finish()
	})
}

func (r *Reloader) script() []byte {
	endpoint := r.path + "?" + url.Values{instanceParam: {r.instance}}.Encode()
	return []byte(fmt.Sprintf(scriptTemplate, strconv.Quote(endpoint)))
}

const scriptTemplate = `<script>(function () {
  var endpoint = %s;
  function poll() {
    fetch(endpoint, { cache: "no-store" }).then(function (res) {
      if (res.status === 205) { location.reload(); return; }
      poll();
    }, function () { setTimeout(poll, 1000); });
  }
  poll();
})();</script>`

// injectingWriter holds HTML bodies back until the handler returns so the
// script can be placed before </body>.
type injectingWriter struct {
	http.ResponseWriter
	script  []byte
	status  int
	decided bool
	html    bool
	buf     bytes.Buffer
}

func (w *injectingWriter) decide(status int) {
	if w.decided {
		return
	}
	w.decided = true
	w.status = status
	w.html = bodyAllowed(status) && isHTML(w.Header())
	if !w.html {
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *injectingWriter) WriteHeader(status int) {
	w.decide(status)
}

func (w *injectingWriter) Write(b []byte) (int, error) {
	w.decide(http.StatusOK)
	if w.html {
		return w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the connection.
func (w *injectingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *injectingWriter) finish() {
	if !w.html {
		return
	}
	body := Inject(w.buf.Bytes(), w.script)
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(body)
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}

func isHTML(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// Inject places script before the last </body> of page, or appends it when
// the page has none.
func Inject(page, script []byte) []byte {
	out := make([]byte, 0, len(page)+len(script))
	i := bytes.LastIndex(bytes.ToLower(page), closingBody)
	if i < 0 {
		out = append(out, page...)
		return append(out, script...)
	}
	out = append(out, page[:i]...)
	out = append(out, script...)
	return append(out, page[i:]...)
}
