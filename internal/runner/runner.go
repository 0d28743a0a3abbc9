package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/engine"
	"github.com/shaiso/Apiary/internal/executor"
	"github.com/shaiso/Apiary/internal/expr"
)

// Engine — движок выполнения workflow.
type Engine struct {
	registry *executor.Registry
	env      expr.EnvProvider
	logger   *slog.Logger
}

// New создаёт движок.
//
// registry nil — реестр исполнителей по умолчанию с http.DefaultClient.
// env nil — выражения env.NAME не резолвятся (движок не читает окружение
// процесса сам, провайдер инжектируется).
func New(registry *executor.Registry, env expr.EnvProvider, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = executor.NewRegistry(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, env: env, logger: logger}
}

// state — разделяемое состояние одного run.
type state struct {
	graph    *engine.Graph
	settings domain.Settings
	vars     *expr.VarStore
	handle   *RunHandle
	runCtx   context.Context
	log      *slog.Logger

	wg sync.WaitGroup

	mu       sync.Mutex
	results  map[string]*domain.NodeResult
	merges   map[string]*mergeState
	failed   bool
	firstErr string
}

// branch — одна ветка выполнения.
//
// ctx отменяется при проигрыше sibling-группы; parent — контекст
// до последнего fan-out, с ним побеждающая ветка продолжает
// выполнение за merge узлом.
type branch struct {
	ctx         context.Context
	parent      context.Context
	groupCancel context.CancelFunc
	ectx        *expr.Context
}

// Run запускает выполнение workflow и возвращает RunHandle.
//
// Граф валидируется перед стартом. Выполнение идёт в фоне: события
// завершения узлов эмитятся в RunHandle.Events, сводка доступна
// после RunHandle.Done.
func (e *Engine) Run(ctx context.Context, wf *domain.Workflow, settings domain.Settings, initialVars map[string]any) (*RunHandle, error) {
	return e.RunWithID(ctx, uuid.New(), wf, settings, initialVars)
}

// RunWithID — как Run, но с внешним идентификатором run. Используется
// демоном, когда run уже создан в БД и его ID должен сквозить через
// логи и события.
func (e *Engine) RunWithID(ctx context.Context, runID uuid.UUID, wf *domain.Workflow, settings domain.Settings, initialVars map[string]any) (*RunHandle, error) {
	g, err := engine.Build(wf)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	h := &RunHandle{
		RunID:  runID,
		events: make(chan Event, 2*g.Size()+8),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	st := &state{
		graph:    g,
		settings: settings,
		vars:     expr.NewVarStore(initialVars),
		handle:   h,
		runCtx:   runCtx,
		log: e.logger.With(
			slog.String("run_id", runID.String()),
			slog.String("workflow", wf.Name),
		),
		results: make(map[string]*domain.NodeResult, g.Size()),
		merges:  make(map[string]*mergeState),
	}

	// Аккумуляторы merge узлов создаются заранее: need фиксируется
	// количеством заведённых в узел рёбер
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.Type == domain.NodeTypeMerge {
			st.merges[node.ID] = newMergeState(node, g.FanIn(node.ID))
		}
	}

	startedAt := time.Now()
	st.log.Info("run started", slog.Int("nodes", g.Size()))

	root := branch{
		ctx:    runCtx,
		parent: runCtx,
		ectx:   &expr.Context{Vars: st.vars, Env: e.env},
	}
	st.wg.Add(1)
	go e.walk(st, root, "", g.Start().ID)

	go func() {
		st.wg.Wait()
		summary := st.buildSummary(runID, startedAt)
		st.log.Info("run finished",
			slog.String("status", string(summary.Status)),
			slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		)
		h.finish(summary)
		cancel()
	}()

	return h, nil
}

// walk выполняет ветку начиная с nodeID; fromID — узел, из которого
// ветка пришла (для индекса ветки на merge узлах).
func (e *Engine) walk(st *state, br branch, fromID, nodeID string) {
	defer st.wg.Done()

	for {
		node := st.graph.Node(nodeID)

		// Отмена проверяется до входа в узел: исполнители с нулевой
		// длительностью (start, end, assertion) не должны запускаться
		// на уже отменённой ветке между точками ожидания. Узел, в
		// который ветка так и не вошла, результата не получает.
		if br.ctx.Err() != nil {
			return
		}

		if node.Type == domain.NodeTypeMerge {
			if !e.enterMerge(st, &br, fromID, nodeID) {
				return
			}
		} else if !e.execNode(st, &br, node) {
			return
		}

		outs := st.graph.Outgoing(nodeID)
		switch len(outs) {
		case 0:
			return
		case 1:
			fromID, nodeID = nodeID, outs[0]
		default:
			// Fan-out: goroutine на каждую ветку, общая группа отмены
			group, cancelGroup := context.WithCancel(br.ctx)
			for _, target := range outs {
				child := branch{
					ctx:         group,
					parent:      br.ctx,
					groupCancel: cancelGroup,
					ectx:        br.ectx,
				}
				st.wg.Add(1)
				go e.walk(st, child, nodeID, target)
			}
			return
		}
	}
}

// enterMerge доставляет результат ветки в аккумулятор merge узла.
// true — эта ветка продолжает выполнение за merge.
func (e *Engine) enterMerge(st *state, br *branch, fromID, mergeID string) bool {
	idx, _ := st.graph.BranchIndex(fromID, mergeID)
	ms := st.merges[mergeID]

	res := br.ectx.Prev
	if res == nil {
		// Ветка пришла напрямую из merge с несколькими выжившими:
		// доставляем синтетический успешный результат
		res = &domain.NodeResult{
			NodeID: fromID,
			Type:   st.graph.Node(fromID).Type,
			Status: domain.NodeStatusSucceeded,
		}
	}

	out := ms.arrive(idx, res, br.groupCancel, br.ectx, st.settings.ContinueOnFail)
	if !out.resolved {
		// WAITING либо поздний результат отброшен
		return false
	}

	st.record(out.result)
	st.log.Debug("merge resolved",
		slog.String("node_id", mergeID),
		slog.String("status", string(out.result.Status)),
	)

	// Побеждающая ветка выходит из sibling-группы
	br.ctx = br.parent
	br.groupCancel = nil

	if out.result.Failed() {
		if !st.settings.ContinueOnFail {
			e.skipForward(st, *br, mergeID, out.result)
			return false
		}
		br.ectx = &expr.Context{Prev: out.result, Vars: st.vars, Env: e.env}
		return true
	}

	br.ectx = &expr.Context{Prev: out.prev, Branches: out.branches, Vars: st.vars, Env: e.env}
	return true
}

// execNode выполняет обычный узел. false — ветка завершена
// (отмена или ошибка при continueOnFail=false).
func (e *Engine) execNode(st *state, br *branch, node *domain.Node) bool {
	exec, err := e.registry.Get(node.Type)
	if err != nil {
		result := &domain.NodeResult{
			NodeID: node.ID,
			Type:   node.Type,
			Status: domain.NodeStatusFailed,
			Error:  err.Error(),
		}
		return e.afterFailure(st, br, node, result, err)
	}

	started := time.Now()
	result, execErr := exec.Execute(br.ctx, node, br.ectx)
	if result == nil {
		result = &domain.NodeResult{NodeID: node.ID, Type: node.Type}
	}
	result.StartedAt = started
	result.FinishedAt = time.Now()

	if execErr != nil {
		if br.ctx.Err() != nil && (errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded)) {
			// Кооперативная отмена ветки: узел помечается CANCELLED,
			// экстракторы не применялись
			result.Status = domain.NodeStatusCancelled
			result.Error = ErrCancelledBranch.Error()
			st.record(result)
			return false
		}

		result.Status = domain.NodeStatusFailed
		if result.Error == "" {
			result.Error = execErr.Error()
		}
		return e.afterFailure(st, br, node, result, execErr)
	}

	result.Status = domain.NodeStatusSucceeded
	st.record(result)
	br.ectx = &expr.Context{Prev: result, Vars: st.vars, Env: e.env}
	return true
}

// afterFailure применяет политику continueOnFail к проваленному узлу.
func (e *Engine) afterFailure(st *state, br *branch, node *domain.Node, result *domain.NodeResult, err error) bool {
	st.record(result)
	st.log.Warn("node failed",
		slog.String("node_id", node.ID),
		slog.String("type", string(node.Type)),
		slog.String("error", err.Error()),
	)

	if !st.settings.ContinueOnFail {
		e.skipForward(st, *br, node.ID, result)
		return false
	}

	// Провал как терминальный, но не фатальный результат:
	// ветка продолжает, prev несёт проваленный узел
	br.ectx = &expr.Context{Prev: result, Vars: st.vars, Env: e.env}
	return true
}

// skipForward проводит проваленную ветку вперёд по рёбрам без
// выполнения узлов, доставляя провал в аккумуляторы merge узлов.
// Иначе merge со стратегией all ждал бы прибытия вечно.
func (e *Engine) skipForward(st *state, br branch, fromID string, failed *domain.NodeResult) {
	for _, targetID := range st.graph.Outgoing(fromID) {
		node := st.graph.Node(targetID)

		if node.Type != domain.NodeTypeMerge {
			e.skipForward(st, br, targetID, failed)
			continue
		}

		idx, _ := st.graph.BranchIndex(fromID, targetID)
		out := st.merges[targetID].arrive(idx, failed, br.groupCancel, br.ectx, st.settings.ContinueOnFail)
		if !out.resolved {
			continue
		}

		// Прибытие провала разрешает merge только в FAILED
		st.record(out.result)
		e.skipForward(st, br, targetID, out.result)
	}
}

// record сохраняет результат узла и эмитит событие.
func (st *state) record(result *domain.NodeResult) {
	st.mu.Lock()
	st.results[result.NodeID] = result
	if result.Failed() && !st.failed {
		st.failed = true
		st.firstErr = result.Error
	}
	st.mu.Unlock()

	st.handle.emit(result)
}

// buildSummary собирает итоговую сводку run.
func (st *state) buildSummary(runID uuid.UUID, startedAt time.Time) *Summary {
	st.mu.Lock()
	defer st.mu.Unlock()

	status := domain.RunStatusCompleted
	switch {
	case st.runCtx.Err() != nil:
		status = domain.RunStatusCancelled
	case st.failed:
		status = domain.RunStatusFailed
	}

	results := make(map[string]*domain.NodeResult, len(st.results))
	for k, v := range st.results {
		results[k] = v
	}

	return &Summary{
		RunID:      runID,
		Status:     status,
		Results:    results,
		Variables:  st.vars.Snapshot(),
		Error:      st.firstErr,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}
