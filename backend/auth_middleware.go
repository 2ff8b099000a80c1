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
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const defaultAuthCookieName = "futebolstats_auth"

// jwksCache holds the signing keys fetched from the identity provider,
// refreshed at most once a minute on key misses.
type jwksCache struct {
	url string

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

func (c *jwksCache) refresh() error {
	if c.url == "" {
		return fmt.Errorf("no JWKS URL configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.Lock()
	c.keys = set
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	return nil
}

// lookup finds the key with the given kid, refreshing the set once if the kid
// is unknown and the last refresh is old enough to rule out a thundering herd.
func (c *jwksCache) lookup(kid string) (interface{}, error) {
	c.mu.RLock()
	keys := c.keys
	last := c.lastRefresh
	c.mu.RUnlock()

	if key, err := materializeKey(keys, kid); err == nil {
		return key, nil
	}

	if time.Since(last) < time.Minute {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	if err := c.refresh(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	keys = c.keys
	c.mu.RUnlock()
	return materializeKey(keys, kid)
}

func materializeKey(set jwk.Set, kid string) (interface{}, error) {
	if set == nil {
		return nil, fmt.Errorf("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	var raw interface{}
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

// jwtAuthMiddleware authenticates requests by validating the JWT carried in
// the auth cookie against the configured JWKS. Requests without a valid token
// proceed as anonymous; handlers decide what anonymous users may do.
func jwtAuthMiddleware(opts Options, next http.Handler) http.Handler {
	cache := &jwksCache{url: opts.AuthJWKSURL}

	if opts.AuthJWKSURL != "" {
		// Initial fetch attempt; non-fatal, retried on first request.
		if err := cache.refresh(); err != nil {
			log.Printf("Warning: Failed to fetch JWKS on startup: %v", err)
		}
	} else {
		log.Println("Warning: No AuthJWKSURL provided. All requests are treated as anonymous.")
	}

	cookieName := opts.AuthCookieName
	if cookieName == "" {
		cookieName = defaultAuthCookieName
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
			switch token.Method.(type) {
			case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
			default:
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, fmt.Errorf("token missing 'kid' header")
			}
			return cache.lookup(kid)
		})
		if err != nil || !token.Valid {
			// Invalid token (expired, bad sig, etc.) -> anonymous.
			if opts.Debug && err != nil {
				log.Printf("JWT validation failed: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if email, ok := claims["email"].(string); ok && email != "" {
				ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(email))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// mockAuthMiddleware reads the user from a plain cookie. For testing only.
func mockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("mock_auth_user")
		if err == nil && cookie.Value != "" {
			ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(cookie.Value))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}
