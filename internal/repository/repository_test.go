package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"speakwell/internal/apperrors"
	"speakwell/internal/database"
	"speakwell/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func TestUserRepositoryFirstUserIsAdmin(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	first, err := repo.CreateUser("first@example.com", "hash", "First")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	second, err := repo.CreateUser("second@example.com", "hash", "Second")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if first.Role != models.RoleAdmin || second.Role != models.RoleStudent {
		t.Errorf("roles = %q, %q; want admin, student", first.Role, second.Role)
	}

	got, err := repo.GetUserByEmail("second@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", got, err)
	}
	if got.ID != second.ID || got.Level != models.LevelBeginner || got.Status != models.StatusActive || got.LastLoginAt != nil {
		t.Errorf("GetUserByEmail() = %+v", got)
	}

	if missing, err := repo.GetUserByEmail("nobody@example.com"); missing != nil || err != nil {
		t.Errorf("GetUserByEmail(missing) = %v, %v", missing, err)
	}

	if _, err := repo.CreateUser("second@example.com", "hash", "Dup"); err == nil {
		t.Error("duplicate email should fail")
	}
}

func TestUserRepositoryUpdateAndDelete(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	u, _ := repo.CreateUser("a@example.com", "hash", "A")

	if err := repo.UpdateUser(u.ID, "Alice", models.RoleStudent, 3, models.StatusInactive); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if err := repo.TouchLastLogin(u.ID, time.Now()); err != nil {
		t.Fatalf("TouchLastLogin() error = %v", err)
	}
	got, _ := repo.GetUserByID(u.ID)
	if got.Name != "Alice" || got.Role != models.RoleStudent || got.Level != 3 || got.Status != models.StatusInactive || got.LastLoginAt == nil {
		t.Errorf("after update: %+v", got)
	}

	total, active, err := repo.CountUsers()
	if err != nil || total != 1 || active != 0 {
		t.Errorf("CountUsers() = %d, %d, %v", total, active, err)
	}

	if err := repo.UpdateUser(999, "x", models.RoleStudent, 1, models.StatusActive); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v", err)
	}
	if err := repo.DeleteUser(u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := repo.DeleteUser(u.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v", err)
	}
}

func TestUserRepositoryOAuth(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	u, err := repo.CreateOAuthUser("g@example.com", "G", "google", "sub-1")
	if err != nil {
		t.Fatalf("CreateOAuthUser() error = %v", err)
	}

	got, err := repo.GetUserByOAuth("google", "sub-1")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetUserByOAuth() = %v, %v", got, err)
	}

	plain, _ := repo.CreateUser("p@example.com", "hash", "P")
	if err := repo.LinkOAuthProvider(plain.ID, "facebook", "fb-1"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(plain.ID, "google", "other"); err == nil {
		t.Error("linking a second provider should fail")
	}
}

func TestUserRepositorySessions(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	u, _ := repo.CreateUser("s@example.com", "hash", "S")

	now := time.Now()
	if _, err := repo.CreateSession("live", u.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := repo.CreateSession("stale", u.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	n, err := repo.DeleteExpiredSessions(now)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, %v", n, err)
	}
	if s, _ := repo.GetSession("stale"); s != nil {
		t.Error("expired session should be gone")
	}
	s, err := repo.GetSession("live")
	if err != nil || s == nil || s.UserID != u.ID {
		t.Fatalf("GetSession() = %v, %v", s, err)
	}

	if err := repo.DeleteUserSessions(u.ID); err != nil {
		t.Fatalf("DeleteUserSessions() error = %v", err)
	}
	if s, _ := repo.GetSession("live"); s != nil {
		t.Error("user sessions should be gone")
	}
}

func TestLessonRepository(t *testing.T) {
	repo := NewLessonRepository(openTestDB(t))

	lessons := []models.Lesson{
		{Title: "Greetings", Level: 1, Unit: 1, Chapter: 1, Active: true},
		{Title: "Small talk", Level: 1, Unit: 1, Chapter: 2, Active: true},
		{Title: "Hidden", Level: 1, Unit: 1, Chapter: 2, Active: false},
		{Title: "Meetings", Level: 2, Unit: 2, Chapter: 1, Active: true},
	}
	for i := range lessons {
		if err := repo.Create(&lessons[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter models.LessonFilter
		want   []string
	}{
		{name: "all", filter: models.LessonFilter{}, want: []string{"Greetings", "Small talk", "Hidden", "Meetings"}},
		{name: "unit", filter: models.LessonFilter{Unit: 1, ActiveOnly: true}, want: []string{"Greetings", "Small talk"}},
		{name: "chapter", filter: models.LessonFilter{Unit: 1, Chapter: 2}, want: []string{"Small talk", "Hidden"}},
		{name: "level", filter: models.LessonFilter{MaxLevel: 1, ActiveOnly: true}, want: []string{"Greetings", "Small talk"}},
		{name: "none", filter: models.LessonFilter{Unit: 9}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d lessons, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Title != tt.want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, got[i].Title, tt.want[i])
				}
			}
		})
	}

	l := lessons[0]
	l.Title = "Hello and goodbye"
	if err := repo.Update(&l); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := repo.SetActive(l.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, _ := repo.GetByID(l.ID)
	if got.Title != "Hello and goodbye" || got.Active {
		t.Errorf("GetByID() = %+v", got)
	}

	total, active, err := repo.Count()
	if err != nil || total != 4 || active != 2 {
		t.Errorf("Count() = %d, %d, %v", total, active, err)
	}

	if err := repo.Delete(l.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := repo.GetByID(l.ID); got != nil {
		t.Error("deleted lesson still present")
	}
}

func TestResultRepository(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewResultRepository(db)
	u, _ := users.CreateUser("r@example.com", "hash", "Rita")

	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Minute)
	res := &models.TestResult{
		UserID:        u.ID,
		StartedAt:     started,
		CompletedAt:   &completed,
		OverallScore:  70,
		Pronunciation: 70,
		Fluency:       65,
		Accuracy:      75,
		Feedback:      "Good progress",
		Attempts: []models.AttemptScore{
			{Word: "Sustainability", Pronunciation: 80, Fluency: 70, Accuracy: 90, Feedback: "a", Timestamp: started.Add(time.Minute)},
			{Word: "Resilience", Pronunciation: 60, Fluency: 60, Accuracy: 60, Feedback: "b", Timestamp: started.Add(2 * time.Minute)},
		},
	}
	if err := repo.Save(res); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.ID == 0 {
		t.Fatal("Save() did not set ID")
	}

	got, err := repo.GetByID(res.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.UserName != "Rita" || got.OverallScore != 70 || got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.Attempts) != 2 || got.Attempts[0].Word != "Sustainability" || got.Attempts[1].Pronunciation != 60 {
		t.Errorf("attempts = %+v", got.Attempts)
	}

	list, err := repo.ListByUser(u.ID, 10)
	if err != nil || len(list) != 1 {
		t.Errorf("ListByUser() = %d results, %v", len(list), err)
	}
	count, avg, err := repo.Stats()
	if err != nil || count != 1 || avg != 70 {
		t.Errorf("Stats() = %d, %v, %v", count, avg, err)
	}

	if err := repo.Delete(res.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if all, _ := repo.ListAll(0); len(all) != 0 {
		t.Errorf("ListAll() after delete = %d", len(all))
	}
}

func TestFeedbackRepository(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewFeedbackRepository(db)
	u, _ := users.CreateUser("f@example.com", "hash", "Finn")

	f := &models.Feedback{UserID: u.ID, Type: models.FeedbackBug, Message: "Mic button is stuck", Status: models.FeedbackOpen, Priority: models.PriorityMedium}
	if err := repo.Create(f); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if n, _ := repo.CountOpen(); n != 1 {
		t.Errorf("CountOpen() = %d, want 1", n)
	}
	if err := repo.UpdateTriage(f.ID, models.FeedbackClosed, models.PriorityHigh); err != nil {
		t.Fatalf("UpdateTriage() error = %v", err)
	}

	got, _ := repo.GetByID(f.ID)
	if got.Status != models.FeedbackClosed || got.Priority != models.PriorityHigh || got.UserName != "Finn" {
		t.Errorf("GetByID() = %+v", got)
	}
	if open, _ := repo.List(models.FeedbackOpen); len(open) != 0 {
		t.Errorf("List(open) = %d items", len(open))
	}
	if all, _ := repo.List(""); len(all) != 1 {
		t.Errorf("List() = %d items", len(all))
	}

	if err := repo.Delete(f.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.UpdateTriage(f.ID, models.FeedbackOpen, models.PriorityLow); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdateTriage(missing) error = %v", err)
	}
}
