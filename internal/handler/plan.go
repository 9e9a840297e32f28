// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/planner/internal/repository"
	"github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/logger"
	"github.com/paiban/planner/pkg/model"
	"github.com/paiban/planner/pkg/report"
	"github.com/paiban/planner/pkg/scheduler/constraint"
	"github.com/paiban/planner/pkg/scheduler/planner"
	"github.com/paiban/planner/pkg/scheduler/solver"
	"github.com/paiban/planner/pkg/stats"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 8 << 20

// PlanObserver 记录求解指标
type PlanObserver interface {
	ObservePlan(plan *planner.Plan)
	SetFairnessGini(engine string, gini float64)
}

// PlanHandler 排班处理器
type PlanHandler struct {
	engine       string
	solveTimeout time.Duration
	observer     PlanObserver
	plans        repository.PlanRepositoryInterface
}

// Option 处理器选项
type Option func(*PlanHandler)

// WithEngine 设置默认求解引擎
func WithEngine(name string) Option {
	return func(h *PlanHandler) {
		h.engine = name
	}
}

// WithSolveTimeout 设置单次求解的时间上限，0 表示不限制
func WithSolveTimeout(d time.Duration) Option {
	return func(h *PlanHandler) {
		h.solveTimeout = d
	}
}

// WithObserver 设置指标记录器
func WithObserver(o PlanObserver) Option {
	return func(h *PlanHandler) {
		h.observer = o
	}
}

// WithRepository 启用求解记录存储
func WithRepository(plans repository.PlanRepositoryInterface) Option {
	return func(h *PlanHandler) {
		h.plans = plans
	}
}

// NewPlanHandler 创建排班处理器
func NewPlanHandler(opts ...Option) *PlanHandler {
	h := &PlanHandler{engine: solver.DefaultEngine}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register 注册路由，未启用存储时不提供记录查询
func (h *PlanHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/plan", h.Solve)
	mux.HandleFunc("GET /api/v1/constraints", h.Constraints)
	if h.plans == nil {
		return
	}
	mux.HandleFunc("GET /api/v1/plans", h.List)
	mux.HandleFunc("GET /api/v1/plans/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/plans/{id}", h.Delete)
}

// Solve 求解排班
// 请求体为输入文档，?engine= 选择求解引擎；无解时仍返回200
func (h *PlanHandler) Solve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(w, errors.New(errors.CodeTooLarge, "请求体超过上限").
				WithDetails(strconv.FormatInt(tooLarge.Limit, 10)+" 字节").
				WithCause(err))
			return
		}
		respondError(w, errors.DataLoad("request", err))
		return
	}

	s, err := model.Decode("request", body)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}

	name := r.URL.Query().Get("engine")
	if name == "" {
		name = h.engine
	}
	engine, err := solver.New(name)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}

	ctx := r.Context()
	if h.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.solveTimeout)
		defer cancel()
	}

	plan, err := planner.New(engine).Solve(ctx, s, nil)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Msg("求解失败")
		respondError(w, errors.As(err))
		return
	}

	doc := report.NewDocument(plan)
	h.observe(plan, doc.Fairness)

	if h.plans != nil {
		data, err := json.Marshal(doc)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInternal, "序列化排班结果失败"))
			return
		}
		if err := h.plans.Create(r.Context(), repository.NewPlanRecord(plan, data)); err != nil {
			respondError(w, errors.As(err))
			return
		}
	}

	respondJSON(w, http.StatusOK, doc)
}

func (h *PlanHandler) observe(plan *planner.Plan, fm *stats.FairnessMetrics) {
	if h.observer == nil {
		return
	}
	h.observer.ObservePlan(plan)
	if fm != nil {
		h.observer.SetFairnessGini(plan.Engine, fm.ShiftGini)
	}
}

// ConstraintInfo 约束描述
type ConstraintInfo struct {
	Name     string              `json:"name"`
	Type     constraint.Type     `json:"type"`
	Category constraint.Category `json:"category"`
}

// Constraints 列出求解时使用的约束
func (h *PlanHandler) Constraints(w http.ResponseWriter, r *http.Request) {
	m := constraint.NewDefaultManager()
	all := m.GetAll()
	out := make([]ConstraintInfo, 0, len(all))
	for _, c := range all {
		out = append(out, ConstraintInfo{Name: c.Name(), Type: c.Type(), Category: c.Category()})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"constraints": out,
		"summary":     m.Summary(),
	})
}

// ListResponse 求解记录列表
type ListResponse struct {
	Total int                      `json:"total"`
	Plans []*repository.PlanRecord `json:"plans"`
}

// List 列出求解记录
// 支持 engine、status、limit、offset、order_by、order_dir 查询参数
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithEngine(q.Get("engine")).
		WithStatus(q.Get("status"))

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, errors.InvalidInput("limit", err.Error()))
			return
		}
		filter = filter.WithLimit(limit)
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, errors.InvalidInput("offset", err.Error()))
			return
		}
		filter = filter.WithOffset(offset)
	}
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}

	plans, total, err := h.plans.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}
	for _, p := range plans {
		// 列表不返回完整文档
		p.Document = ""
	}
	if plans == nil {
		plans = make([]*repository.PlanRecord, 0)
	}

	respondJSON(w, http.StatusOK, ListResponse{Total: total, Plans: plans})
}

// PlanDetail 单条求解记录
type PlanDetail struct {
	*repository.PlanRecord
	Document json.RawMessage `json:"document"`
}

// Get 获取求解记录及其分配
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rec, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}
	assignments, err := h.plans.GetAssignments(r.Context(), id)
	if err != nil {
		respondError(w, errors.As(err))
		return
	}
	rec.Assignments = assignments

	detail := PlanDetail{PlanRecord: rec}
	if rec.Document != "" {
		detail.Document = json.RawMessage(rec.Document)
	}
	respondJSON(w, http.StatusOK, detail)
}

// Delete 删除求解记录
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.plans.Delete(r.Context(), id); err != nil {
		respondError(w, errors.As(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID 解析路径中的记录ID，失败时已写入错误响应
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, errors.InvalidInput("id", "不是合法的UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
