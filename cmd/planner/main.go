// 排班规划命令行工具
//
// 用法：planner [-engine pb|sat] [-solutions 0,3,5] [-workload] <input.json>

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/paiban/planner/internal/config"
	"github.com/paiban/planner/internal/database"
	"github.com/paiban/planner/internal/repository"
	"github.com/paiban/planner/pkg/logger"
	"github.com/paiban/planner/pkg/model"
	"github.com/paiban/planner/pkg/report"
	"github.com/paiban/planner/pkg/scheduler/planner"
	"github.com/paiban/planner/pkg/scheduler/solver"
)

// storeTimeout 保存求解记录的时间上限
const storeTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		// 第一次中断只结束求解，恢复默认处理后再次中断直接退出
		<-ctx.Done()
		stop()
	}()
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行一次求解，返回进程退出码
// 输入或配置错误返回1，求解完成（包括无解）返回0
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger.Init(cfg.Logger())

	fs := flag.NewFlagSet("planner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	engineName := fs.String("engine", cfg.Solver.Engine, "求解引擎: "+strings.Join(solver.Names(), "|"))
	solutions := fs.String("solutions", "", "输出的中间解序号，逗号分隔，例如 0,3,5")
	workload := fs.Bool("workload", false, "输出每个用户的班次统计")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "用法: planner [-engine pb|sat] [-solutions 0,3,5] [-workload] <input.json>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	selected := cfg.Solver.Solutions
	if *solutions != "" {
		if selected, err = config.ParseSolutions(*solutions); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	engine, err := solver.New(*engineName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	s, err := model.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var onCandidate planner.CandidateFunc
	var streamer *report.Streamer
	if len(selected) > 0 {
		streamer = report.NewStreamer(stdout, selected)
		onCandidate = streamer.OnCandidate
	}

	plan, err := planner.New(engine).Solve(ctx, s, onCandidate)
	if err != nil {
		// 模型构建阶段的配置错误同样在求解前失败
		fmt.Fprintln(stderr, err)
		return 1
	}
	if streamer != nil && streamer.Err() != nil {
		fmt.Fprintln(stderr, streamer.Err())
		return 1
	}

	if err := report.Text(stdout, plan); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *workload && plan.Solved() {
		if err := report.Workload(stdout, plan); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	if cfg.Database.Enabled {
		if err := store(ctx, &cfg.Database, plan); err != nil {
			// 报告已经输出，存储失败不影响退出码
			logger.Warn().Err(err).Str("plan_id", plan.ID.String()).Msg("保存求解记录失败")
		}
	}
	return 0
}

// store 保存求解记录
// 不继承 ctx 的取消，中断后仍保存已得到的结果
func store(ctx context.Context, cfg *config.DatabaseConfig, plan *planner.Plan) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(report.NewDocument(plan))
	if err != nil {
		return err
	}
	return repository.NewPlanRepository(db).Create(ctx, repository.NewPlanRecord(plan, data))
}
