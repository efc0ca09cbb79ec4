package service

import (
	"bytes"
	"testing"
	"time"

	"speakwell/internal/models"
	"speakwell/internal/repository"
)

func TestBackupRoundTrip(t *testing.T) {
	src := openTestDB(t)
	users := repository.NewUserRepository(src)
	u, err := users.CreateUser("ann@example.com", "hash", "Ann")
	if err != nil {
		t.Fatal(err)
	}
	lessons := NewLessonService(repository.NewLessonRepository(src), quietLogger())
	if err := lessons.SeedDefaults(); err != nil {
		t.Fatal(err)
	}

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(5 * time.Minute)
	res := &models.TestResult{
		UserID: u.ID, StartedAt: started, CompletedAt: &completed,
		OverallScore: 70, Pronunciation: 70, Fluency: 65, Accuracy: 75, Feedback: "Good",
		Attempts: []models.AttemptScore{
			{Word: "Sustainability", Pronunciation: 80, Fluency: 70, Accuracy: 90, Timestamp: started},
			{Word: "Resilience", Pronunciation: 60, Fluency: 60, Accuracy: 60, Timestamp: completed},
		},
	}
	if err := repository.NewResultRepository(src).Save(res); err != nil {
		t.Fatal(err)
	}
	if err := repository.NewFeedbackRepository(src).Create(&models.Feedback{UserID: u.ID, Type: "bug", Message: "Mic", Status: "open", Priority: "high"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	exported, err := NewBackupService(src, quietLogger()).Export(&buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(exported.Users) != 1 || len(exported.Results) != 1 || len(exported.Results[0].Attempts) != 2 || len(exported.Feedback) != 1 {
		t.Fatalf("exported = %+v", exported)
	}

	dst := openTestDB(t)
	if _, err := repository.NewUserRepository(dst).CreateUser("other@example.com", "hash", "Other"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewBackupService(dst, quietLogger()).Import(bytes.NewReader(buf.Bytes()), true); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	restored, err := repository.NewResultRepository(dst).GetByID(res.ID)
	if err != nil || restored == nil {
		t.Fatalf("GetByID() = %v, %v", restored, err)
	}
	if restored.OverallScore != 70 || len(restored.Attempts) != 2 || restored.Attempts[0].Word != "Sustainability" {
		t.Errorf("restored result = %+v", restored)
	}
	if other, _ := repository.NewUserRepository(dst).GetUserByEmail("other@example.com"); other != nil {
		t.Error("clear did not remove existing users")
	}
	total, _, err := repository.NewLessonRepository(dst).Count()
	if err != nil || total != len(exported.Lessons) {
		t.Errorf("lessons = %d, %v; want %d", total, err, len(exported.Lessons))
	}
}

func TestBackupImportRollsBack(t *testing.T) {
	db := openTestDB(t)
	backup := []byte(`{"version":"2.0","users":[{"id":1,"email":"a@example.com","password_hash":"x","name":"A","role":"student","level":1,"status":"active"}],
		"feedback":[{"id":1,"user_id":99,"type":"bug","message":"orphan","status":"open","priority":"high"}]}`)

	if _, err := NewBackupService(db, quietLogger()).Import(bytes.NewReader(backup), false); err == nil {
		t.Fatal("Import() succeeded with a dangling user reference")
	}
	if u, _ := repository.NewUserRepository(db).GetUserByEmail("a@example.com"); u != nil {
		t.Error("partial import was committed")
	}
}
