// Package aggregate holds the named read-side computations behind the
// dashboard, ranking and report endpoints. Every function is pure: callers
// fetch rows from the store and fold them here.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/noah-isme/school-admin-api/internal/models"
)

// PassThreshold is the minimum average score counted as a pass.
const PassThreshold = 50.0

// DateLayout is the calendar-day key used in series and filters.
const DateLayout = "2006-01-02"

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// DayOf truncates t to the calendar day it falls on in loc, returned as a
// midnight UTC value so it compares equal to dates read back from the store.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and last calendar day of month/year.
func MonthRange(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// AttendanceSummary counts present and absent rows.
//
// Input: any set of attendance rows. Output: counts plus the present
// percentage, 0 for an empty set.
func AttendanceSummary(records []models.Attendance) models.AttendanceSummary {
	summary := models.AttendanceSummary{Total: len(records)}
	for _, r := range records {
		if r.Status == models.AttendanceStatusPresent {
			summary.Present++
		}
	}
	summary.Absent = summary.Total - summary.Present
	summary.Percentage = Percentage(summary.Present, summary.Total)
	return summary
}

// DailySeries buckets joined attendance rows into one entry per day for the
// days ending on end (inclusive), oldest first. Days without rows report zero.
// Orphaned rows are skipped.
func DailySeries(records []models.AttendanceRecord, end time.Time, days int) []models.DayCount {
	if days <= 0 {
		return []models.DayCount{}
	}
	buckets := make(map[string]*models.DayCount, days)
	series := make([]models.DayCount, days)
	for i := 0; i < days; i++ {
		key := end.AddDate(0, 0, i-days+1).Format(DateLayout)
		series[i] = models.DayCount{Date: key}
		buckets[key] = &series[i]
	}
	for _, r := range records {
		if r.Orphaned() {
			continue
		}
		bucket, ok := buckets[r.Date.Format(DateLayout)]
		if !ok {
			continue
		}
		bucket.Total++
		if r.Status == models.AttendanceStatusPresent {
			bucket.Present++
		}
	}
	return series
}

// ClassBreakdown groups joined attendance rows of currently approved students
// by class label, sorted by label.
func ClassBreakdown(records []models.AttendanceRecord) []models.ClassCount {
	byClass := make(map[string]*models.ClassCount)
	for _, r := range records {
		if r.Orphaned() || r.Class == nil {
			continue
		}
		if r.StudentStatus == nil || *r.StudentStatus != models.StudentStatusApproved {
			continue
		}
		entry, ok := byClass[*r.Class]
		if !ok {
			entry = &models.ClassCount{Class: *r.Class}
			byClass[*r.Class] = entry
		}
		entry.Total++
		if r.Status == models.AttendanceStatusPresent {
			entry.Present++
		}
	}
	result := make([]models.ClassCount, 0, len(byClass))
	for _, entry := range byClass {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Class < result[j].Class })
	return result
}

// AttendanceWarnings lists rows whose student reference is dangling.
func AttendanceWarnings(records []models.AttendanceRecord) []models.DataIntegrityWarning {
	warnings := make([]models.DataIntegrityWarning, 0)
	for _, r := range records {
		if !r.Orphaned() {
			continue
		}
		warnings = append(warnings, models.DataIntegrityWarning{
			Kind:      models.IntegrityOrphanedAttendance,
			RecordID:  r.ID,
			StudentID: r.StudentID,
			Message:   fmt.Sprintf("attendance %s references missing student %s", r.ID, r.StudentID),
		})
	}
	return warnings
}

// MarkWarnings lists marks whose student reference is dangling.
func MarkWarnings(marks []models.MarkRecord) []models.DataIntegrityWarning {
	warnings := make([]models.DataIntegrityWarning, 0)
	for _, m := range marks {
		if !m.Orphaned() {
			continue
		}
		warnings = append(warnings, models.DataIntegrityWarning{
			Kind:      models.IntegrityOrphanedMark,
			RecordID:  m.ID,
			StudentID: m.StudentID,
			Message:   fmt.Sprintf("mark %s references missing student %s", m.ID, m.StudentID),
		})
	}
	return warnings
}

// AverageScore is the mean score of marks, 0 for none.
func AverageScore(marks []models.Mark) float64 {
	if len(marks) == 0 {
		return 0
	}
	var total float64
	for _, m := range marks {
		total += m.Score
	}
	return Round2(total / float64(len(marks)))
}

// StudentAverages groups joined marks per student in first-seen order.
// Orphaned marks are excluded.
func StudentAverages(marks []models.MarkRecord) []models.StudentAverage {
	index := make(map[string]int)
	result := make([]models.StudentAverage, 0)
	for _, m := range marks {
		if m.Orphaned() {
			continue
		}
		i, ok := index[m.StudentID]
		if !ok {
			i = len(result)
			index[m.StudentID] = i
			result = append(result, models.StudentAverage{Student: studentRef(m)})
		}
		result[i].Total += m.Score
		result[i].MarkCount++
	}
	for i := range result {
		result[i].Average = result[i].Total / float64(result[i].MarkCount)
	}
	return result
}

// PassRate is the percentage of averages at or above threshold.
func PassRate(averages []models.StudentAverage, threshold float64) float64 {
	passed := 0
	for _, a := range averages {
		if a.Average >= threshold {
			passed++
		}
	}
	return Percentage(passed, len(averages))
}

// TopPerformers returns the n highest averages, ties broken by student id.
// Reported averages are rounded to two decimals.
func TopPerformers(averages []models.StudentAverage, n int) []models.StudentAverage {
	sorted := append([]models.StudentAverage(nil), averages...)
	sortByAverage(sorted, func(i int) (float64, string) { return sorted[i].Average, sorted[i].Student.ID })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	for i := range sorted {
		sorted[i].Average = Round2(sorted[i].Average)
	}
	return sorted
}

// LetterGrade maps an average score to its letter.
func LetterGrade(avg float64) string {
	switch {
	case avg >= 90:
		return "A+"
	case avg >= 80:
		return "A"
	case avg >= 70:
		return "B"
	case avg >= 60:
		return "C"
	case avg >= 50:
		return "D"
	default:
		return "F"
	}
}

// RankExam ranks students by their average score across the given marks,
// highest first, ties broken by student id.
func RankExam(marks []models.MarkRecord) []models.RankEntry {
	averages := StudentAverages(marks)
	sortByAverage(averages, func(i int) (float64, string) { return averages[i].Average, averages[i].Student.ID })
	ranked := make([]models.RankEntry, len(averages))
	for i, a := range averages {
		ranked[i] = models.RankEntry{
			Rank:     i + 1,
			Student:  a.Student,
			Total:    Round2(a.Total),
			Subjects: a.MarkCount,
			Average:  Round2(a.Average),
			Grade:    LetterGrade(a.Average),
		}
	}
	return ranked
}

func sortByAverage(items []models.StudentAverage, key func(i int) (float64, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, idI := key(i)
		aj, idJ := key(j)
		if ai != aj {
			return ai > aj
		}
		return idI < idJ
	})
}

func studentRef(m models.MarkRecord) models.StudentRef {
	ref := models.StudentRef{ID: m.StudentID}
	if m.StudentName != nil {
		ref.Name = *m.StudentName
	}
	if m.RollNumber != nil {
		ref.RollNumber = *m.RollNumber
	}
	if m.Class != nil {
		ref.Class = *m.Class
	}
	return ref
}
