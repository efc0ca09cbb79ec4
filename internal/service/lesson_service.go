package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/repository"
)

// Units are the themed lesson groups, each unlocked at a minimum level
var Units = []models.Unit{
	{Key: 1, Title: "Daily Conversations", MinLevel: models.LevelBeginner},
	{Key: 2, Title: "Business English", MinLevel: models.LevelIntermediate},
	{Key: 3, Title: "Academic Discussions", MinLevel: models.LevelAdvanced},
	{Key: 4, Title: "Travel Phrases", MinLevel: models.LevelBeginner},
	{Key: 5, Title: "Job Interviews", MinLevel: models.LevelIntermediate},
}

// UnitsForLevel returns the units a learner at level can open
func UnitsForLevel(level int) []models.Unit {
	return lo.Filter(Units, func(u models.Unit, _ int) bool {
		return u.MinLevel <= level
	})
}

func unitByKey(key int) (models.Unit, bool) {
	return lo.Find(Units, func(u models.Unit) bool { return u.Key == key })
}

// LessonInput carries the editable fields of a lesson
type LessonInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Level       int    `json:"level" validate:"min=1,max=3"`
	Unit        int    `json:"unit" validate:"min=1"`
	Chapter     int    `json:"chapter" validate:"min=1"`
	Active      bool   `json:"active"`
}

// LessonPage is a unit's lessons plus its sorted chapter numbers
type LessonPage struct {
	Lessons  []models.Lesson `json:"lessons"`
	Chapters []int           `json:"chapters"`
}

// LessonService handles lesson business logic
type LessonService struct {
	lessonRepo *repository.LessonRepository
	logger     logrus.FieldLogger
}

// NewLessonService creates a new lesson service
func NewLessonService(lessonRepo *repository.LessonRepository, logger logrus.FieldLogger) *LessonService {
	return &LessonService{
		lessonRepo: lessonRepo,
		logger:     logger.WithField("component", "lessons"),
	}
}

// List returns lessons matching filter together with their chapters
func (s *LessonService) List(filter models.LessonFilter) (*LessonPage, error) {
	lessons, err := s.lessonRepo.List(filter)
	if err != nil {
		return nil, err
	}
	return &LessonPage{Lessons: lessons, Chapters: Chapters(lessons)}, nil
}

// Chapters returns the unique chapter numbers of lessons in ascending order
func Chapters(lessons []models.Lesson) []int {
	chapters := lo.Uniq(lo.Map(lessons, func(l models.Lesson, _ int) int { return l.Chapter }))
	sort.Ints(chapters)
	return chapters
}

// Get returns one lesson
func (s *LessonService) Get(id int64) (*models.Lesson, error) {
	l, err := s.lessonRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperrors.ErrNotFound
	}
	return l, nil
}

func (s *LessonService) checkUnit(unit int) error {
	if _, ok := unitByKey(unit); !ok {
		return apperrors.ValidationError{Field: "unit", Message: fmt.Sprintf("unknown unit %d", unit)}
	}
	return nil
}

// Create adds a lesson
func (s *LessonService) Create(in LessonInput) (*models.Lesson, error) {
	if err := s.checkUnit(in.Unit); err != nil {
		return nil, err
	}
	l := &models.Lesson{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Level:       in.Level,
		Unit:        in.Unit,
		Chapter:     in.Chapter,
		Active:      in.Active,
	}
	if err := s.lessonRepo.Create(l); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"lesson_id": l.ID, "unit": l.Unit}).Info("Lesson created")
	return l, nil
}

// Update replaces the editable fields of a lesson
func (s *LessonService) Update(id int64, in LessonInput) (*models.Lesson, error) {
	if err := s.checkUnit(in.Unit); err != nil {
		return nil, err
	}
	l, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	l.Title = strings.TrimSpace(in.Title)
	l.Description = strings.TrimSpace(in.Description)
	l.Level = in.Level
	l.Unit = in.Unit
	l.Chapter = in.Chapter
	l.Active = in.Active
	if err := s.lessonRepo.Update(l); err != nil {
		return nil, err
	}
	return l, nil
}

// SetActive shows or hides a lesson
func (s *LessonService) SetActive(id int64, active bool) error {
	return s.lessonRepo.SetActive(id, active)
}

// Delete removes a lesson
func (s *LessonService) Delete(id int64) error {
	return s.lessonRepo.Delete(id)
}

// defaultLessons seeds an empty database
var defaultLessons = []LessonInput{
	{Title: "Greetings and Introductions", Description: "Say hello, introduce yourself and ask how someone is.", Level: 1, Unit: 1, Chapter: 1, Active: true},
	{Title: "Talking About Your Day", Description: "Describe your morning, your plans and your routine.", Level: 1, Unit: 1, Chapter: 1, Active: true},
	{Title: "Weekend Plans", Description: "Ask about and describe plans for the weekend.", Level: 1, Unit: 1, Chapter: 2, Active: true},
	{Title: "Business Meetings", Description: "Open a meeting, discuss figures and agree next steps.", Level: 2, Unit: 2, Chapter: 1, Active: true},
	{Title: "Presenting a Proposal", Description: "Structure a short proposal and answer questions about it.", Level: 2, Unit: 2, Chapter: 2, Active: true},
	{Title: "Seminar Discussions", Description: "Agree, disagree and build on other speakers' points.", Level: 3, Unit: 3, Chapter: 1, Active: true},
	{Title: "At the Airport", Description: "Check in, go through security and ask for directions.", Level: 1, Unit: 4, Chapter: 1, Active: true},
	{Title: "Hotel Check-in", Description: "Book a room, ask about facilities and report a problem.", Level: 1, Unit: 4, Chapter: 2, Active: true},
	{Title: "Job Interviews", Description: "Talk about your experience, strengths and goals.", Level: 2, Unit: 5, Chapter: 1, Active: true},
}

// SeedDefaults inserts the starter lessons when the table is empty
func (s *LessonService) SeedDefaults() error {
	total, _, err := s.lessonRepo.Count()
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	for _, in := range defaultLessons {
		if _, err := s.Create(in); err != nil {
			return fmt.Errorf("failed to seed lesson %q: %w", in.Title, err)
		}
	}
	s.logger.WithField("count", len(defaultLessons)).Info("Seeded default lessons")
	return nil
}
