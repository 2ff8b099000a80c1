// Copyright (c) 2026 the FutebolStats authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("normalizeEmail = %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"user@example.com": "u***@example.com",
		"":                 "<empty>",
		"not-an-email":     "****",
	}
	for in, want := range cases {
		if got := maskEmail(in); got != want {
			t.Errorf("maskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMockAuthMiddleware(t *testing.T) {
	var seen string
	handler := mockAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getUserID(r)
	}))

	req := httptest.NewRequest("GET", "/api/state", nil)
	req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: "Tester@Example.com"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "tester@example.com" {
		t.Errorf("userID = %q", seen)
	}

	seen = "unset"
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/state", nil))
	if seen != "" {
		t.Errorf("Expected anonymous, got %q", seen)
	}
}
