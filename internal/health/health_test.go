package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestReadinessFollowsManager(t *testing.T) {
	m := NewManager(false)

	r := gin.New()
	r.GET("/healthz", LivenessHandler)
	r.GET("/readyz", ReadinessHandler(m))

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	if code := get("/healthz"); code != http.StatusOK {
		t.Fatalf("healthz: status %d", code)
	}
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before startup finished: status %d", code)
	}

	m.SetReady(true)
	if code := get("/readyz"); code != http.StatusOK {
		t.Fatalf("readyz after startup: status %d", code)
	}

	m.SetReady(false)
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz during drain: status %d", code)
	}
}
