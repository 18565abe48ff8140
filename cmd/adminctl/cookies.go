package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// storedCookie is the on-disk form of one cookie.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Expires  time.Time `json:"expires,omitempty"` // zero = session cookie, kept until replaced
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// fileJar is an http.CookieJar persisted under the config dir, so the session
// survives between CLI invocations. Persistence is best-effort: a write
// failure only means logging in again next run.
type fileJar struct {
	mu     sync.Mutex
	path   string
	byHost map[string][]storedCookie
}

func openFileJar(path string) (*fileJar, error) {
	j := &fileJar{path: path, byHost: map[string][]storedCookie{}}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &j.byHost); err != nil {
		// corrupt store: start fresh rather than lock the user out
		j.byHost = map[string][]storedCookie{}
	}
	return j, nil
}

func (j *fileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	host := u.Hostname()
	now := time.Now()
	for _, c := range cookies {
		kept := j.byHost[host][:0:0]
		for _, sc := range j.byHost[host] {
			if sc.Name != c.Name {
				kept = append(kept, sc)
			}
		}
		j.byHost[host] = kept

		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			continue // deletion
		}
		exp := c.Expires
		if c.MaxAge > 0 {
			exp = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.byHost[host] = append(j.byHost[host], storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Expires:  exp,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	j.persist()
}

func (j *fileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	var out []*http.Cookie
	for _, sc := range j.byHost[u.Hostname()] {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	return out
}

// persist is called with j.mu held.
func (j *fileJar) persist() {
	_ = os.MkdirAll(filepath.Dir(j.path), 0o700)
	b, err := json.MarshalIndent(j.byHost, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(j.path, b, 0o600)
}
