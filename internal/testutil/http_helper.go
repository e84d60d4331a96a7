package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carbonledger/api/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// requestTimeout is generous because bcrypt and zxcvbn run inside handlers.
const requestTimeout = 10_000

// HTTPHelper drives a Fiber app in-process and fails the test on transport errors.
type HTTPHelper struct {
	t   *testing.T
	app *fiber.App
}

func NewHTTPHelper(t *testing.T, app *fiber.App) *HTTPHelper {
	require.NotNil(t, app)
	return &HTTPHelper{t: t, app: app}
}

// Request is built fluently and executed with Send.
type Request struct {
	h      *HTTPHelper
	method string
	path   string
	body   []byte
	header http.Header
}

// NewRequest encodes body as JSON unless it is already []byte or string.
func (h *HTTPHelper) NewRequest(method, path string, body interface{}) *Request {
	r := &Request{h: h, method: method, path: path, header: http.Header{}}
	switch b := body.(type) {
	case nil:
		return r
	case []byte:
		r.body = b
	case string:
		r.body = []byte(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		r.body = raw
	}
	r.header.Set(types.HeaderContentType, fiber.MIMEApplicationJSON)
	return r
}

func (r *Request) WithHeader(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

func (r *Request) WithJWTAuth(token string) *Request {
	return r.WithHeader(types.HeaderAuthorization, types.BearerPrefix+token)
}

// AsMultipartForm replaces the body with fields and files, each file named "<field>.csv".
func (r *Request) AsMultipartForm(fields map[string]string, files map[string][]byte) *Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(r.h.t, w.WriteField(name, value))
	}
	for name, content := range files {
		part, err := w.CreateFormFile(name, name+".csv")
		require.NoError(r.h.t, err)
		_, err = part.Write(content)
		require.NoError(r.h.t, err)
	}
	require.NoError(r.h.t, w.Close())

	r.body = buf.Bytes()
	return r.WithHeader(types.HeaderContentType, w.FormDataContentType())
}

func (r *Request) Send() *http.Response {
	req := httptest.NewRequest(r.method, r.path, bytes.NewReader(r.body))
	req.Header = r.header
	resp, err := r.h.app.Test(req, requestTimeout)
	require.NoError(r.h.t, err)
	return resp
}

// DecodeJSON reads resp's body into v and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
