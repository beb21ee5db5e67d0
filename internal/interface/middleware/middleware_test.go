package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Freshwater0/Celestial-SphereX/internal/application"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

func init() { gin.SetMode(gin.TestMode) }

type stubAuthn struct {
	admin    bool
	adminErr error
}

var errStoreDown = fmt.Errorf("%w: connection refused", application.ErrUnavailable)

func (s stubAuthn) Authenticate(_ context.Context, bearer string) (application.Principal, error) {
	switch bearer {
	case "good":
		return application.Principal{UserID: "u-1", SessionID: "s-1"}, nil
	case "down":
		return application.Principal{}, errStoreDown
	}
	return application.Principal{}, application.ErrSessionInvalid
}

func (s stubAuthn) IsAdmin(context.Context, string) (bool, error) { return s.admin, s.adminErr }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", Auth(stubAuthn{}), func(c *gin.Context) {
		p := PrincipalFrom(c)
		c.String(http.StatusOK, p.UserID+"/"+p.SessionID)
	})

	cases := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"bearer header", "Bearer good", "", http.StatusOK},
		{"lowercase scheme", "bearer good", "", http.StatusOK},
		{"wrong scheme", "Basic good", "", http.StatusUnauthorized},
		{"cookie", "", "good", http.StatusOK},
		{"rejected bearer", "Bearer stale", "", http.StatusUnauthorized},
		{"session store down", "Bearer down", "", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: tc.cookie})
			}
			w := serve(r, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "u-1/s-1", w.Body.String())
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	for _, admin := range []bool{true, false} {
		authn := stubAuthn{admin: admin}
		r := gin.New()
		r.POST("/email/send", Auth(authn), AdminOnly(authn), func(c *gin.Context) { c.Status(http.StatusAccepted) })

		req := httptest.NewRequest(http.MethodPost, "/email/send", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := serve(r, req)
		if admin {
			assert.Equal(t, http.StatusAccepted, w.Code)
		} else {
			assert.Equal(t, http.StatusForbidden, w.Code)
		}
	}
}

func TestAdminOnly_LookupErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"store down", errStoreDown, http.StatusServiceUnavailable},
		{"user gone", errors.New("user not found"), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authn := stubAuthn{admin: true, adminErr: tc.err}
			r := gin.New()
			r.POST("/email/send", Auth(authn), AdminOnly(authn), func(c *gin.Context) { c.Status(http.StatusAccepted) })

			req := httptest.NewRequest(http.MethodPost, "/email/send", nil)
			req.Header.Set("Authorization", "Bearer good")
			assert.Equal(t, tc.want, serve(r, req).Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(ratelimit.NewMemoryCounter(), ratelimit.Rule{Max: 2, Window: time.Minute}, KeyByIP(), nil),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", ip)
		return serve(r, req)
	}
	assert.Equal(t, http.StatusOK, hit("198.51.100.1").Code)
	w := hit("198.51.100.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hit("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit("198.51.100.2").Code)
}

func TestRateLimit_PrivateBypass(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(ratelimit.NewMemoryCounter(), ratelimit.Rule{Max: 1, Window: time.Minute}, KeyByIP(), AllowPrivateIP()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", "10.1.2.3")
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}
}

func TestRealIP_PrefersCloudflareHeader(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", serve(r, req).Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "0b5d2f6e-8f55-4c1f-9d2a-5e8a2c1b7f10")
	assert.Equal(t, "0b5d2f6e-8f55-4c1f-9d2a-5e8a2c1b7f10", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	assert.NotEqual(t, "<script>", serve(r, req).Body.String())
}
