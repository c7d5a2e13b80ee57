// html.go - Minimal server-rendered pages. The portal has three screens
// (login, user dashboard, admin) built from escaped string fragments; a
// templating layer is deliberately out of scope.
package server

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"fileportal/internal/store"
)

func writePage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func pageShell(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title><link rel="stylesheet" href="/static/style.css"></head>
<body>
%s
</body>
</html>`, html.EscapeString(title), body)
}

func messagesHTML(msgs []flashMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="messages">`)
	for _, m := range msgs {
		cls := "msg-error"
		if m.Category == "success" {
			cls = "msg-success"
		}
		fmt.Fprintf(&b, `<div class="msg %s">%s</div>`, cls, html.EscapeString(m.Text))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func loginPage(msgs []flashMessage) string {
	body := fmt.Sprintf(`<h1>File Portal</h1>
%s
<form method="POST" action="/login">
<label>Username <input type="text" name="username"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Log in</button>
</form>`, messagesHTML(msgs))
	return pageShell("Login", body)
}

func userRowsHTML(users []store.User, currentUserID int64) string {
	if len(users) == 0 {
		return `<tr><td colspan="5" class="muted">No users found.</td></tr>`
	}
	var b strings.Builder
	for _, u := range users {
		deleteCell := `<span class="muted">&mdash;</span>`
		if u.ID != currentUserID {
			deleteCell = fmt.Sprintf(`<form method="POST" action="/admin/delete_user/%d"><button class="btn btn-danger" type="submit">Delete</button></form>`, u.ID)
		}
		fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			u.DisplayID,
			html.EscapeString(u.Username),
			html.EscapeString(u.Role),
			html.EscapeString(u.CreatedAt.Format("02/01/2006 15:04")),
			deleteCell,
		)
	}
	return b.String()
}

func adminPage(username string, msgs []flashMessage, users []store.User, currentUserID int64) string {
	body := fmt.Sprintf(`<h1>Admin &middot; %s</h1>
<a href="/logout">Log out</a>
%s
<form method="POST" action="/admin/create_user">
<label>Username <input type="text" name="username"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Create user</button>
</form>
<table>
<tr><th>#</th><th>Username</th><th>Role</th><th>Created</th><th></th></tr>
%s
</table>`, html.EscapeString(username), messagesHTML(msgs), userRowsHTML(users, currentUserID))
	return pageShell("Admin", body)
}

func fileRowsHTML(files []store.File) string {
	if len(files) == 0 {
		return `<tr><td colspan="5" class="muted">No files uploaded yet.</td></tr>`
	}
	var b strings.Builder
	for _, f := range files {
		size := "-"
		if f.FileSize.Valid {
			size = fmt.Sprintf("%d", f.FileSize.Int64)
		}
		fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td><a class="action-link" href="/dashboard/download/%d">Download</a> <form method="POST" action="/dashboard/delete/%d"><button class="btn btn-danger" type="submit">Delete</button></form></td></tr>`,
			f.ID,
			html.EscapeString(f.OriginalFilename),
			size,
			html.EscapeString(f.UploadedAt.Format("02/01/2006 15:04")),
			f.ID,
			f.ID,
		)
	}
	return b.String()
}

func dashboardPage(username string, msgs []flashMessage, files []store.File) string {
	body := fmt.Sprintf(`<h1>Your Files &middot; %s</h1>
<a href="/logout">Log out</a>
%s
<form method="POST" action="/dashboard/upload" enctype="multipart/form-data">
<input type="file" name="file">
<button type="submit">Upload</button>
</form>
<table>
<tr><th>ID</th><th>Name</th><th>Size</th><th>Uploaded</th><th></th></tr>
%s
</table>`, html.EscapeString(username), messagesHTML(msgs), fileRowsHTML(files))
	return pageShell("Dashboard", body)
}
