// Package report 输出排班结果和求解统计
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/paiban/planner/pkg/scheduler/planner"
)

// NoSolution 无解时输出的文本
const NoSolution = "No solution found."

// Text 输出按天排列的排班表和统计信息
func Text(w io.Writer, plan *planner.Plan) error {
	bw := bufio.NewWriter(w)

	if plan.Solved() {
		writeDays(bw, plan.Days, plan.DayAssignments(), true)
	} else {
		fmt.Fprintln(bw, NoSolution)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Statistics")
	fmt.Fprintf(bw, "  - score      : %d\n", plan.Stats.Objective)
	fmt.Fprintf(bw, "  - conflicts  : %d\n", plan.Stats.Conflicts)
	fmt.Fprintf(bw, "  - branches   : %d\n", plan.Stats.Branches)
	fmt.Fprintf(bw, "  - wall time  : %f s\n", plan.Stats.WallTime.Seconds())

	return bw.Flush()
}

// Workload 输出每个用户的班次合计及其工作量界
func Workload(w io.Writer, plan *planner.Plan) error {
	if !plan.Solved() {
		return nil
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Repartition")
	for _, t := range plan.Tallies {
		fmt.Fprintf(bw, "  %-15s %d  [%d, %d]\n", t.UserLabel, t.Shifts, t.Bound.Lower, t.Bound.Upper)
	}
	return bw.Flush()
}

// writeDays 每天一行标签，其后每个班次一行
func writeDays(w io.Writer, days []string, byDay [][]planner.Assignment, markUnwanted bool) {
	for d, label := range days {
		fmt.Fprintln(w, label)
		for _, a := range byDay[d] {
			if markUnwanted && a.Unwanted {
				fmt.Fprintf(w, "  %-15s %s (unwanted)\n", a.ShiftLabel, a.UserLabel)
			} else {
				fmt.Fprintf(w, "  %-15s %s\n", a.ShiftLabel, a.UserLabel)
			}
		}
	}
}
