package server

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func adminEnv(t *testing.T) (*testEnv, *testClient) {
	t.Helper()
	env := newTestEnv(t, 0)
	env.mustCreateUser(t, "admin", "admin123", "admin")
	c := newTestClient(t, env.srv)
	wantRedirect(t, c.login("admin", "admin123"), "/admin")
	return env, c
}

func TestAdminPageListsUsers(t *testing.T) {
	env, c := adminEnv(t)
	env.mustCreateUser(t, "alice", "pw1pw1", "user")

	body := c.get("/admin").Body.String()
	for _, want := range []string{"admin", "alice"} {
		if !strings.Contains(body, want) {
			t.Errorf("admin page should list %q, body %q", want, body)
		}
	}
	// The row for the logged-in admin carries no delete form.
	if strings.Contains(body, "/admin/delete_user/1") {
		t.Errorf("admin page must not offer self-delete, body %q", body)
	}
	if !strings.Contains(body, "/admin/delete_user/2") {
		t.Errorf("admin page should offer deleting other users, body %q", body)
	}
}

func TestAdminCreateUser(t *testing.T) {
	env, c := adminEnv(t)

	wantRedirect(t, c.postForm("/admin/create_user", url.Values{
		"username": {"bob"},
		"password": {"secret"},
	}), "/admin")

	u, err := env.store.GetUserByUsername(context.Background(), "bob")
	if err != nil || u == nil {
		t.Fatalf("expected bob to exist, got %v, %v", u, err)
	}
	if u.Role != "user" {
		t.Fatalf("admin-created accounts must be regular users, got %q", u.Role)
	}
	if body := c.get("/admin").Body.String(); !strings.Contains(body, "User &#39;bob&#39; created.") {
		t.Fatalf("expected creation notice, body %q", body)
	}
}

func TestAdminCreateUserValidation(t *testing.T) {
	_, c := adminEnv(t)

	wantRedirect(t, c.postForm("/admin/create_user", url.Values{
		"username": {"   "},
		"password": {"x"},
	}), "/admin")
	if body := c.get("/admin").Body.String(); !strings.Contains(body, "Username and password required.") {
		t.Fatalf("expected validation notice, body %q", body)
	}
}

func TestAdminCreateDuplicateUsernameKeepsOriginal(t *testing.T) {
	env, c := adminEnv(t)
	env.mustCreateUser(t, "bob", "original", "user")

	wantRedirect(t, c.postForm("/admin/create_user", url.Values{
		"username": {"bob"},
		"password": {"other"},
	}), "/admin")
	if body := c.get("/admin").Body.String(); !strings.Contains(body, "Username may already exist.") {
		t.Fatalf("expected duplicate notice, body %q", body)
	}

	// The original credentials still work.
	c2 := newTestClient(t, env.srv)
	wantRedirect(t, c2.login("bob", "original"), "/dashboard")
}

func TestAdminDeleteUserCascades(t *testing.T) {
	env, c := adminEnv(t)
	env.mustCreateUser(t, "bob", "pw1pw1", "user")

	bob := newTestClient(t, env.srv)
	bob.login("bob", "pw1pw1")
	bob.upload("/dashboard/upload", "doc.txt", []byte("data"))

	wantRedirect(t, c.postForm("/admin/delete_user/2", nil), "/admin")

	if u, _ := env.store.GetUserByUsername(context.Background(), "bob"); u != nil {
		t.Fatalf("expected bob gone")
	}
	if env.store.fileCount() != 0 {
		t.Fatalf("expected bob's file rows gone")
	}
	if env.blobs.count() != 0 {
		t.Fatalf("expected bob's stored bytes reclaimed")
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	env, c := adminEnv(t)

	wantRedirect(t, c.postForm("/admin/delete_user/1", nil), "/admin")
	if u, _ := env.store.GetUserByUsername(context.Background(), "admin"); u == nil {
		t.Fatalf("admin account must survive a self-delete attempt")
	}
	if body := c.get("/admin").Body.String(); !strings.Contains(body, "cannot delete your own account") {
		t.Fatalf("expected self-delete notice, body %q", body)
	}
}

func TestAdminRoutesForbiddenToRegularUsers(t *testing.T) {
	env := newTestEnv(t, 0)
	env.mustCreateUser(t, "bob", "pw1pw1", "user")

	c := newTestClient(t, env.srv)
	c.login("bob", "pw1pw1")

	wantRedirect(t, c.get("/admin"), "/dashboard")
	wantRedirect(t, c.postForm("/admin/create_user", url.Values{
		"username": {"eve"}, "password": {"x"},
	}), "/dashboard")
	wantRedirect(t, c.postForm("/admin/delete_user/1", nil), "/dashboard")

	if u, _ := env.store.GetUserByUsername(context.Background(), "eve"); u != nil {
		t.Fatalf("regular users must not create accounts")
	}
	if u, _ := env.store.GetUserByUsername(context.Background(), "bob"); u == nil {
		t.Fatalf("regular users must not delete accounts")
	}

	if body := c.get("/dashboard").Body.String(); !strings.Contains(body, "Access denied: Admins only.") {
		t.Fatalf("expected access-denied notice, body %q", body)
	}
}
