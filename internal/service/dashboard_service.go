package service

import (
	"github.com/samber/lo"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
)

const recentResultsLimit = 5

// LearnerDashboard is the view model of /user-dashboard
type LearnerDashboard struct {
	Name           string              `json:"name"`
	Level          int                 `json:"level"`
	LevelName      string              `json:"levelName"`
	Units          []models.Unit       `json:"units"`
	Skills         progress.Summary    `json:"skills"`
	TestsTaken     int                 `json:"testsTaken"`
	LatestFeedback string              `json:"latestFeedback"`
	RecentResults  []models.TestResult `json:"recentResults"`
}

// Stage is one step of the learning path
type Stage struct {
	Title    string   `json:"title"`
	Duration string   `json:"duration"`
	Tasks    []string `json:"tasks"`
}

// Roadmap is the view model of /roadmap
type Roadmap struct {
	OverallScore     int      `json:"overallScore"`
	RecommendedLevel string   `json:"recommendedLevel"`
	Strengths        []string `json:"strengths"`
	FocusAreas       []string `json:"focusAreas"`
	LearningPath     []Stage  `json:"learningPath"`
	Tips             []string `json:"improvementTips"`
}

// AdminDashboard is the view model of /admin-dashboard
type AdminDashboard struct {
	Users         int     `json:"totalUsers"`
	ActiveUsers   int     `json:"activeUsers"`
	Lessons       int     `json:"totalLessons"`
	ActiveLessons int     `json:"activeLessons"`
	Tests         int     `json:"totalTests"`
	AverageScore  float64 `json:"averageScore"`
	OpenFeedback  int     `json:"openFeedback"`
}

var learningPath = []Stage{
	{
		Title:    "Foundation Building",
		Duration: "2-3 weeks",
		Tasks:    []string{"Daily pronunciation drills (15 mins)", "Basic grammar review", "100 common phrases practice", "Tongue twisters exercises"},
	},
	{
		Title:    "Skill Development",
		Duration: "3-4 weeks",
		Tasks:    []string{"Conversation practice (30 mins daily)", "Listening comprehension exercises", "Vocabulary expansion (10 new words daily)", "Record and analyze your speech"},
	},
	{
		Title:    "Advanced Mastery",
		Duration: "4-6 weeks",
		Tasks:    []string{"Debate and discussion practice", "Idioms and advanced expressions", "Accent refinement", "Public speaking simulations"},
	},
}

var skillTips = map[string][]string{
	progress.SkillPronunciation: {
		"Record yourself speaking and compare with native speakers",
		"Practice with tongue twisters to improve articulation",
	},
	progress.SkillFluency: {
		"Shadow native speakers by repeating immediately after them",
		"Think in English to reduce translation time",
	},
	progress.SkillAccuracy: {
		"Focus on problem sounds identified in your test",
		"Join English speaking clubs or conversation groups",
	},
}

var skillTitles = map[string]string{
	progress.SkillPronunciation: "Pronunciation",
	progress.SkillFluency:       "Fluency",
	progress.SkillAccuracy:      "Accuracy",
}

// Scores at or above strengthThreshold count as strengths; scores below
// focusThreshold are always focus areas.
const (
	strengthThreshold = 75
	focusThreshold    = 60
)

// DashboardService builds the dashboard and roadmap view models
type DashboardService struct {
	userRepo     *repository.UserRepository
	lessonRepo   *repository.LessonRepository
	resultRepo   *repository.ResultRepository
	feedbackRepo *repository.FeedbackRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(userRepo *repository.UserRepository, lessonRepo *repository.LessonRepository, resultRepo *repository.ResultRepository, feedbackRepo *repository.FeedbackRepository) *DashboardService {
	return &DashboardService{
		userRepo:     userRepo,
		lessonRepo:   lessonRepo,
		resultRepo:   resultRepo,
		feedbackRepo: feedbackRepo,
	}
}

// SkillBreakdown merges stored results into one summary, weighted by the
// number of attempts behind each result
func SkillBreakdown(results []models.TestResult) progress.Summary {
	return progress.Merge(lo.Map(results, func(r models.TestResult, _ int) progress.Summary {
		return progress.Summary{
			Overall:       r.OverallScore,
			Pronunciation: r.Pronunciation,
			Fluency:       r.Fluency,
			Accuracy:      r.Accuracy,
			Attempts:      r.AttemptCount,
		}
	})...)
}

func (s *DashboardService) user(userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

// Learner returns the dashboard of userID
func (s *DashboardService) Learner(userID int64) (*LearnerDashboard, error) {
	user, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	results, err := s.resultRepo.ListByUser(userID, 0)
	if err != nil {
		return nil, err
	}

	d := &LearnerDashboard{
		Name:          user.Name,
		Level:         user.Level,
		LevelName:     models.LevelName(user.Level),
		Units:         UnitsForLevel(user.Level),
		Skills:        SkillBreakdown(results),
		TestsTaken:    len(results),
		RecentResults: results,
	}
	if len(results) > 0 {
		d.LatestFeedback = results[0].Feedback
	}
	if len(d.RecentResults) > recentResultsLimit {
		d.RecentResults = d.RecentResults[:recentResultsLimit]
	}
	return d, nil
}

// Roadmap returns the learning roadmap of userID
func (s *DashboardService) Roadmap(userID int64) (*Roadmap, error) {
	user, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	results, err := s.resultRepo.ListByUser(userID, 0)
	if err != nil {
		return nil, err
	}
	return BuildRoadmap(SkillBreakdown(results), user.Level), nil
}

// BuildRoadmap derives strengths, focus areas and tips from a skill summary.
// A learner with no attempts gets the full path and is recommended their
// current level.
func BuildRoadmap(skills progress.Summary, level int) *Roadmap {
	r := &Roadmap{
		OverallScore:     skills.Overall,
		RecommendedLevel: models.LevelName(level),
		Strengths:        []string{},
		FocusAreas:       []string{},
		LearningPath:     learningPath,
	}
	if skills.Attempts == 0 {
		r.Tips = lo.Flatten(lo.Map([]string{progress.SkillPronunciation, progress.SkillFluency, progress.SkillAccuracy},
			func(skill string, _ int) []string { return skillTips[skill] }))
		return r
	}

	r.RecommendedLevel = models.LevelName(recommendedLevel(skills.Overall))
	weakest := skills.WeakestSkill()
	scores := map[string]int{
		progress.SkillPronunciation: skills.Pronunciation,
		progress.SkillFluency:       skills.Fluency,
		progress.SkillAccuracy:      skills.Accuracy,
	}
	for _, skill := range []string{progress.SkillPronunciation, progress.SkillFluency, progress.SkillAccuracy} {
		score := scores[skill]
		switch {
		case skill == weakest || score < focusThreshold:
			r.FocusAreas = append(r.FocusAreas, skillTitles[skill])
			r.Tips = append(r.Tips, skillTips[skill]...)
		case score >= strengthThreshold:
			r.Strengths = append(r.Strengths, skillTitles[skill])
		}
	}
	return r
}

func recommendedLevel(overall int) int {
	switch {
	case overall >= 85:
		return models.LevelAdvanced
	case overall >= 65:
		return models.LevelIntermediate
	default:
		return models.LevelBeginner
	}
}

// Admin returns the counts shown on the admin dashboard
func (s *DashboardService) Admin() (*AdminDashboard, error) {
	var (
		d   AdminDashboard
		err error
	)
	if d.Users, d.ActiveUsers, err = s.userRepo.CountUsers(); err != nil {
		return nil, err
	}
	if d.Lessons, d.ActiveLessons, err = s.lessonRepo.Count(); err != nil {
		return nil, err
	}
	if d.Tests, d.AverageScore, err = s.resultRepo.Stats(); err != nil {
		return nil, err
	}
	if d.OpenFeedback, err = s.feedbackRepo.CountOpen(); err != nil {
		return nil, err
	}
	return &d, nil
}
