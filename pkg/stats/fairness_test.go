package stats

import (
	"testing"
)

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	users := []UserLoad{
		{Name: "用户1", Shifts: 2, Unwanted: 1},
		{Name: "用户2", Shifts: 1},
	}

	metrics := analyzer.Analyze(users)

	if metrics == nil {
		t.Fatal("Metrics should not be nil")
	}

	// 用户1有2个班次，用户2有1个，应有一定差异
	if metrics.ShiftGini <= 0 || metrics.ShiftGini > 1 {
		t.Errorf("Gini coefficient should be in (0, 1], got %f", metrics.ShiftGini)
	}

	if len(metrics.UserStats) != 2 {
		t.Errorf("Expected 2 user stats, got %d", len(metrics.UserStats))
	}
	if metrics.UserStats[0].Name != "用户1" {
		t.Errorf("Expected busiest user first, got %s", metrics.UserStats[0].Name)
	}
	if metrics.MaxShifts != 2 || metrics.MinShifts != 1 || metrics.ShiftRange != 1 {
		t.Errorf("unexpected range: max=%d min=%d range=%d", metrics.MaxShifts, metrics.MinShifts, metrics.ShiftRange)
	}
	if metrics.TotalShifts != 3 || metrics.UnwantedShifts != 1 {
		t.Errorf("unexpected totals: %d/%d", metrics.TotalShifts, metrics.UnwantedShifts)
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	metrics := analyzer.Analyze(nil)

	if metrics == nil {
		t.Fatal("Should return empty metrics for nil input")
	}
	if metrics.OverallFairnessScore != 100 {
		t.Errorf("Expected score 100 for empty input, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	// 完全相同的班次数
	users := []UserLoad{
		{Name: "用户1", Shifts: 2},
		{Name: "用户2", Shifts: 2},
	}

	metrics := analyzer.Analyze(users)

	// 完全相同应该Gini=0
	if metrics.ShiftGini > 0.01 {
		t.Errorf("Perfect fairness should have Gini near 0, got %f", metrics.ShiftGini)
	}
	if metrics.Satisfaction != 100 {
		t.Errorf("Expected satisfaction 100, got %f", metrics.Satisfaction)
	}
	if metrics.OverallFairnessScore < 99.99 {
		t.Errorf("Expected full score, got %f", metrics.OverallFairnessScore)
	}
}

func TestFairnessAnalyzer_OverallScore(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	users := []UserLoad{
		{Name: "用户1", Shifts: 4, Unwanted: 4},
		{Name: "用户2", Shifts: 0},
	}

	metrics := analyzer.Analyze(users)

	// 分数应该在0-100之间
	if metrics.OverallFairnessScore < 0 || metrics.OverallFairnessScore > 100 {
		t.Errorf("Score should be 0-100, got %f", metrics.OverallFairnessScore)
	}
	if metrics.Satisfaction != 0 {
		t.Errorf("Expected satisfaction 0, got %f", metrics.Satisfaction)
	}
}
