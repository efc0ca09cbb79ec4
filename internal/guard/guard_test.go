package guard

import (
	"testing"

	"speakwell/internal/models"
	"speakwell/internal/session"
)

var (
	admin   = &session.Session{UserID: 1, Name: "Admin", Role: models.RoleAdmin, Level: 3}
	student = &session.Session{UserID: 2, Name: "Student", Role: models.RoleStudent, Level: 1}
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		sess *session.Session
		want Decision
	}{
		{name: "public without session", rule: Public, sess: nil, want: Decision{Allow: true}},
		{name: "authenticated without session", rule: RequireAuthenticated, sess: nil, want: Decision{RedirectTo: "/"}},
		{name: "authenticated student", rule: RequireAuthenticated, sess: student, want: Decision{Allow: true}},
		{name: "authenticated admin", rule: RequireAuthenticated, sess: admin, want: Decision{Allow: true}},
		{name: "admin role without session", rule: RequireRole(models.RoleAdmin), sess: nil, want: Decision{RedirectTo: "/"}},
		{name: "admin role with student", rule: RequireRole(models.RoleAdmin), sess: student, want: Decision{RedirectTo: "/user-dashboard"}},
		{name: "admin role with admin", rule: RequireRole(models.RoleAdmin), sess: admin, want: Decision{Allow: true}},
		{name: "student role with admin", rule: RequireRole(models.RoleStudent), sess: admin, want: Decision{RedirectTo: "/admin-dashboard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.rule, tt.sess); got != tt.want {
				t.Errorf("Evaluate(%v) = %+v, want %+v", tt.rule, got, tt.want)
			}
		})
	}
}

func TestStudentNeverReachesAdminPages(t *testing.T) {
	for _, level := range []int{1, 2, 3, 10} {
		sess := &session.Session{UserID: 5, Role: models.RoleStudent, Level: level}
		for _, path := range []string{"/admin-dashboard", "/admin/users", "/admin/lessons/3", "/admin"} {
			d := DefaultTable.Check(path, sess)
			if d.Allow || d.RedirectTo != UserDashboardPage {
				t.Errorf("student level %d at %s: %+v", level, path, d)
			}
		}
	}
}

func TestTableCheck(t *testing.T) {
	tests := []struct {
		path string
		sess *session.Session
		want Decision
	}{
		{path: "/admin-dashboard", sess: nil, want: Decision{RedirectTo: "/"}},
		{path: "/admin-dashboard", sess: student, want: Decision{RedirectTo: "/user-dashboard"}},
		{path: "/admin-dashboard", sess: admin, want: Decision{Allow: true}},
		{path: "/user-dashboard", sess: nil, want: Decision{RedirectTo: "/"}},
		{path: "/user-dashboard", sess: admin, want: Decision{Allow: true}},
		{path: "/roadmap", sess: student, want: Decision{Allow: true}},
		{path: "/", sess: nil, want: Decision{Allow: true}},
		{path: "/trial", sess: nil, want: Decision{RedirectTo: "/"}},
		{path: "/trial/attempt", sess: nil, want: Decision{RedirectTo: "/"}},
		{path: "/trial", sess: student, want: Decision{Allow: true}},
		{path: "/trial/results", sess: admin, want: Decision{Allow: true}},
		{path: "/lessons", sess: nil, want: Decision{RedirectTo: "/"}},
		{path: "/admin/feedback/9", sess: admin, want: Decision{Allow: true}},
		{path: "/auth/login", sess: nil, want: Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DefaultTable.Check(tt.path, tt.sess); got != tt.want {
				t.Errorf("Check(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefaultPage(t *testing.T) {
	if got := DefaultPage(models.RoleAdmin); got != AdminDashboardPage {
		t.Errorf("DefaultPage(admin) = %q", got)
	}
	if got := DefaultPage(models.RoleStudent); got != UserDashboardPage {
		t.Errorf("DefaultPage(student) = %q", got)
	}
}
