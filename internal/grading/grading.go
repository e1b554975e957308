// Package grading holds the pure score-computation rules: letter-grade
// resolution, achievement banding, assessment aggregation and comment
// matching. Functions here take configuration snapshots as arguments and
// never touch storage.
package grading

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

// FallbackGrade is returned when no configured boundary covers a percentage.
const FallbackGrade = "F"

// AchievementLevel is the qualitative band printed in the remarks column.
type AchievementLevel string

const (
	AchievementOutstanding  AchievementLevel = "Outstanding"
	AchievementExceptional  AchievementLevel = "Exceptional"
	AchievementSatisfactory AchievementLevel = "Satisfactory"
	AchievementBasic        AchievementLevel = "Basic"
)

// ResolveGrade returns the letter grade of the first boundary covering the
// percentage. Non-overlap is enforced when boundaries are written, so at most
// one boundary can match; an uncovered percentage falls back to "F".
func ResolveGrade(percentage float64, boundaries []models.GradeBoundary) string {
	for _, b := range boundaries {
		if percentage >= b.MinScore && percentage <= b.MaxScore {
			return b.Grade
		}
	}
	return FallbackGrade
}

// ClassifyAchievement maps a percentage onto the fixed four-tier band used
// for the remarks column. Thresholds are not admin-configurable.
func ClassifyAchievement(percentage float64) AchievementLevel {
	switch {
	case percentage >= 90:
		return AchievementOutstanding
	case percentage >= 75:
		return AchievementExceptional
	case percentage >= 60:
		return AchievementSatisfactory
	default:
		return AchievementBasic
	}
}

// SubjectIdentifier maps a percentage onto the 0-3 numeric code shown in the
// Ident column of the printed card (1=Basic, 2=Moderate, 3=Outstanding).
// This banding is distinct from ClassifyAchievement and the two must not be
// merged: the threshold sets differ.
func SubjectIdentifier(percentage float64) int {
	switch {
	case percentage >= 80:
		return 3
	case percentage >= 70:
		return 2
	case percentage >= 40:
		return 1
	default:
		return 0
	}
}

// Aggregate computes the mean of the three assessment scores rounded to two
// decimal places.
func Aggregate(a1, a2, a3 float64) float64 {
	return round2((a1 + a2 + a3) / 3)
}

// OverallAverage computes the mean of percentage_100 across approved
// submissions, rounded to two decimal places. An empty set yields 0; a report
// card with no approved subjects is valid.
func OverallAverage(submissions []models.SubjectSubmission) float64 {
	if len(submissions) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range submissions {
		sum += float64(s.Percentage100)
	}
	return round2(sum / float64(len(submissions)))
}

// MatchComment returns the comments of the first template covering the
// overall average, or nil when none matches. Templates are not checked for
// overlap on write, so matching orders them by (min_percentage, id) to stay
// deterministic regardless of storage order.
func MatchComment(overallAverage float64, templates []models.CommentTemplate) *models.CommentPair {
	ordered := make([]models.CommentTemplate, len(templates))
	copy(ordered, templates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].MinPercentage != ordered[j].MinPercentage {
			return ordered[i].MinPercentage < ordered[j].MinPercentage
		}
		return ordered[i].ID < ordered[j].ID
	})
	for _, t := range ordered {
		if overallAverage >= float64(t.MinPercentage) && overallAverage <= float64(t.MaxPercentage) {
			return &models.CommentPair{
				TemplateID:          t.ID,
				ClassTeacherComment: t.ClassTeacherComment,
				HeadteacherComment:  t.HeadteacherComment,
			}
		}
	}
	return nil
}

// ValidateAssessmentScore parses an A1/A2/A3 score. The value must carry an
// explicit decimal fraction; a bare integer is rejected unless it is exactly
// "0".
func ValidateAssessmentScore(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "assessment score is required")
	}
	if raw == "0" {
		return 0, nil
	}
	dot := strings.Index(raw, ".")
	if dot < 0 || dot == len(raw)-1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "assessment score must include a decimal fraction, e.g. 85.0")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "assessment score is not a valid number")
	}
	if value < 0 || value > 100 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "assessment score must be between 0 and 100")
	}
	return value, nil
}

// ValidateWeightedPercent parses one of the 20/80/100 weighted inputs. Unlike
// assessment scores these must be integers: any decimal point is rejected.
func ValidateWeightedPercent(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "weighted percentage is required")
	}
	if strings.Contains(raw, ".") {
		return 0, appErrors.Clone(appErrors.ErrValidation, "weighted percentage must be a whole number")
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "weighted percentage is not a valid number")
	}
	if value < 0 || value > 100 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "weighted percentage must be between 0 and 100")
	}
	return value, nil
}

// ValidateBoundaries enforces the write-side invariant for grade boundaries:
// single-letter grades, 0 <= min < max <= 100 and no overlapping ranges.
// This is the sole guard; ResolveGrade does not re-validate at read time.
func ValidateBoundaries(boundaries []models.GradeBoundary) error {
	for _, b := range boundaries {
		if len(strings.TrimSpace(b.Grade)) != 1 {
			return appErrors.Clone(appErrors.ErrValidation, "grade must be a single letter")
		}
		if b.MinScore < 0 || b.MaxScore > 100 {
			return appErrors.Clone(appErrors.ErrValidation, "boundary scores must be within 0-100")
		}
		if b.MinScore >= b.MaxScore {
			return appErrors.Clone(appErrors.ErrValidation, "boundary min must be below max")
		}
	}
	ordered := make([]models.GradeBoundary, len(boundaries))
	copy(ordered, boundaries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MinScore < ordered[j].MinScore })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].MinScore <= ordered[i-1].MaxScore {
			return appErrors.Clone(appErrors.ErrValidation, "grade boundary ranges must not overlap")
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
