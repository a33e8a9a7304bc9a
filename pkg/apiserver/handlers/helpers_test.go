package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/alignhq/align/pkg/rbac"
)

type deniedBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func TestRespondDeniedStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		reason rbac.PrimaryReason
		status int
		code   string
	}{
		{rbac.ReasonTenantMismatch, http.StatusNotFound, "not_found"},
		{rbac.ReasonVisibility, http.StatusNotFound, "not_found"},
		{rbac.ReasonRBAC, http.StatusForbidden, "authorization_denied"},
		{rbac.ReasonPublishLock, http.StatusForbidden, "authorization_denied"},
		{rbac.ReasonSuperuserReadonly, http.StatusForbidden, "authorization_denied"},
	}

	for _, tc := range cases {
		recorder := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(recorder)

		respondDenied(c, rbac.ActionEdit, rbac.Decision{Reason: tc.reason})

		if recorder.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.reason, tc.status, recorder.Code)
		}

		var body deniedBody
		if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: failed to decode response: %v", tc.reason, err)
		}
		if body.Error != tc.code {
			t.Fatalf("%s: expected error code %q, got %q", tc.reason, tc.code, body.Error)
		}

		if tc.status == http.StatusForbidden && body.Reason != string(tc.reason) {
			t.Fatalf("%s: expected the reason tag echoed, got %q", tc.reason, body.Reason)
		}
		// A hidden resource must not leak why it is hidden.
		if tc.status == http.StatusNotFound && body.Reason != "" {
			t.Fatalf("%s: expected no reason tag on a 404, got %q", tc.reason, body.Reason)
		}
	}
}
