package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"minicode/internal/judge"
)

func TestExchangeOAuthCode(t *testing.T) {
	oauth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("code") != "abc" {
			t.Errorf("code = %q", r.PostForm.Get("code"))
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_xyz"})
	}))
	defer oauth.Close()

	c := NewGithubClientWithBaseURL("http://unused", oauth.URL)
	token, err := c.ExchangeOAuthCode(context.Background(), "abc", "")
	if err != nil {
		t.Fatalf("ExchangeOAuthCode() error = %v", err)
	}
	if token != "gho_xyz" {
		t.Errorf("token = %q", token)
	}
}

func TestExchangeOAuthCodeBadCode(t *testing.T) {
	oauth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "bad_verification_code",
			"error_description": "The code is incorrect or expired.",
		})
	}))
	defer oauth.Close()

	c := NewGithubClientWithBaseURL("http://unused", oauth.URL)
	if _, err := c.ExchangeOAuthCode(context.Background(), "stale", ""); err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestCreateRepoNameCollision(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "name already exists on this account"}`))
	}))
	defer api.Close()

	c := NewGithubClientWithBaseURL(api.URL, "http://unused")
	_, err := c.CreateRepo(context.Background(), "tok", "minicode-alice-sum", "")
	if !errors.Is(err, errRepoExists) {
		t.Fatalf("CreateRepo() error = %v, want errRepoExists", err)
	}
}

func TestFetchSnapshotPinsCommit(t *testing.T) {
	const sha = "deadbeef1234"
	content := base64.StdEncoding.EncodeToString([]byte("print('hi')\n"))

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/alice/minicode-alice-sum/branches/main":
			json.NewEncoder(w).Encode(map[string]any{
				"commit": map[string]string{"sha": sha},
			})
		case "/repos/alice/minicode-alice-sum/contents/solution.py":
			if got := r.URL.Query().Get("ref"); got != sha {
				t.Errorf("contents ref = %q, want pinned sha %q", got, sha)
			}
			json.NewEncoder(w).Encode(map[string]string{
				"content":  content,
				"encoding": "base64",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	c := NewGithubClientWithBaseURL(api.URL, "http://unused")
	snap, err := c.FetchSnapshot(context.Background(), "tok", "alice", "minicode-alice-sum", "solution.py")
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if snap.CommitSHA != sha {
		t.Errorf("commit sha = %q, want %q", snap.CommitSHA, sha)
	}
	if snap.Content != "print('hi')\n" {
		t.Errorf("content = %q", snap.Content)
	}
}

func TestFetchSnapshotMissingFile(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/alice/minicode-alice-sum/branches/main" {
			json.NewEncoder(w).Encode(map[string]any{
				"commit": map[string]string{"sha": "abc"},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer api.Close()

	c := NewGithubClientWithBaseURL(api.URL, "http://unused")
	_, err := c.FetchSnapshot(context.Background(), "tok", "alice", "minicode-alice-sum", "solution.py")
	if !errors.Is(err, judge.ErrFileNotFound) {
		t.Fatalf("FetchSnapshot() error = %v, want ErrFileNotFound", err)
	}
}

func TestPutFileIncludesExistingSHA(t *testing.T) {
	var gotSHA string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"sha": "blob42"})
		case http.MethodPut:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			gotSHA, _ = body["sha"].(string)
			w.Write([]byte(`{}`))
		}
	}))
	defer api.Close()

	c := NewGithubClientWithBaseURL(api.URL, "http://unused")
	if err := c.PutFile(context.Background(), "tok", "alice", "repo", "README.md", "update", "hello"); err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}
	if gotSHA != "blob42" {
		t.Errorf("update sha = %q, want blob42", gotSHA)
	}
}
