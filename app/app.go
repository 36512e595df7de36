package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/state"
	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
	"vegov/native/governance"
	"vegov/native/params"
	"vegov/native/rewards"
	"vegov/observability/logging"
	"vegov/observability/metrics"
	"vegov/storage"
)

var (
	ErrSenderRequired = coreerrors.Wrap(coreerrors.ErrValidation, "app: sender required")
	ErrNotInitialised = coreerrors.Wrap(coreerrors.ErrNotFound, "app: genesis not initialised")
)

// Option customises an App.
type Option func(*App)

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics replaces the process-wide engine metrics.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *App) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithEventSink receives the events of every committed operation.
func WithEventSink(sink events.Emitter) Option {
	return func(a *App) { a.sink = sink }
}

// App executes operations one at a time against a KV store. Each operation
// runs in its own transaction that is written only when every step succeeds.
type App struct {
	mu      sync.Mutex
	db      storage.KVStore
	querier host.Querier
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
	tracer  trace.Tracer
	sink    events.Emitter
}

// New constructs an App over db using querier for host lookups.
func New(db storage.KVStore, querier host.Querier, opts ...Option) *App {
	a := &App{
		db:      db,
		querier: querier,
		logger:  slog.Default(),
		metrics: metrics.Engine(),
		tracer:  otel.Tracer("vegov/app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InitGenesis validates and stores the global configuration. It may be called
// again to replace the configuration; callers gate that behind admin tooling.
func (a *App) InitGenesis(global params.GlobalState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	txn := storage.NewTxn(a.db)
	if err := params.NewStore(state.NewManager(txn)).SetGlobal(global); err != nil {
		txn.Discard()
		return err
	}
	return txn.Write()
}

// Initialised reports whether genesis has been stored.
func (a *App) Initialised() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return params.NewStore(state.NewManager(a.db)).Initialised()
}

// Execute runs op and commits its writes on success. Operations are passed by
// value; DecodeOperation produces them from JSON. On failure nothing is
// written and no events are published.
func (a *App) Execute(ctx context.Context, env Env, op Operation) (*Result, error) {
	return a.run(ctx, env, op, true)
}

// Simulate runs op exactly like Execute and then discards its writes.
func (a *App) Simulate(ctx context.Context, env Env, op Operation) (*Result, error) {
	return a.run(ctx, env, op, false)
}

// modules is the set of engines bound to one transaction.
type modules struct {
	escrow     *escrow.Engine
	governance *governance.Engine
	rewards    *rewards.Engine
	delegation *delegation.Engine
	params     *params.Store
	buffer     *events.Buffer
}

func (a *App) bind(store storage.KVStore) *modules {
	mgr := state.NewManager(store)
	buffer := &events.Buffer{}

	deleg := delegation.NewEngine()
	deleg.SetState(mgr)
	deleg.SetEmitter(buffer)

	esc := escrow.NewEngine()
	esc.SetState(mgr)
	esc.SetQuerier(a.querier)
	esc.SetDelegationGuard(deleg)
	esc.SetEmitter(buffer)

	gov := governance.NewEngine()
	gov.SetState(mgr)
	gov.SetQuerier(a.querier)
	gov.SetPowerSource(deleg)
	gov.SetEmitter(buffer)

	rew := rewards.NewEngine()
	rew.SetState(mgr)
	rew.SetQuerier(a.querier)
	rew.SetLocker(esc)
	rew.SetEmitter(buffer)

	return &modules{
		escrow:     esc,
		governance: gov,
		rewards:    rew,
		delegation: deleg,
		params:     params.NewStore(mgr),
		buffer:     buffer,
	}
}

func (a *App) run(ctx context.Context, env Env, op Operation, commit bool) (res *Result, err error) {
	if op == nil {
		return nil, ErrUnknownOperation
	}
	name := op.Type()
	_, span := a.tracer.Start(ctx, "app."+name, trace.WithAttributes(
		attribute.String("vegov.operation", name),
		attribute.Int64("vegov.height", int64(env.Height)),
		attribute.Bool("vegov.commit", commit),
	))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(coreerrors.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if !commit {
			outcome = "simulated"
		}
		span.End()
		a.metrics.RecordOperation(name, outcome, time.Since(start))
		a.logOutcome(env, name, outcome, res, err)
	}()

	if strings.TrimSpace(env.Sender) == "" {
		return nil, ErrSenderRequired
	}
	if env.Funds.HasNegative() {
		return nil, coreerrors.ErrNegativeAmount
	}
	env.Funds = env.Funds.Normalize()

	a.mu.Lock()
	defer a.mu.Unlock()

	txn := storage.NewTxn(a.db)
	mods := a.bind(txn)
	if ok, initErr := mods.params.Initialised(); initErr != nil {
		return nil, initErr
	} else if !ok {
		return nil, ErrNotInitialised
	}
	res, err = a.dispatch(mods, env, op)
	if err != nil {
		txn.Discard()
		return nil, err
	}
	res.Operation = name
	res.Digest = txn.Digest()
	res.Events = mods.buffer.Events()
	if !commit {
		txn.Discard()
		return res, nil
	}
	if err = txn.Write(); err != nil {
		return nil, fmt.Errorf("app: commit %s: %w", name, err)
	}
	res.Committed = true
	a.publish(mods.buffer, res)
	return res, nil
}

func (a *App) publish(buffer *events.Buffer, res *Result) {
	for _, eff := range res.Effects {
		for _, coin := range eff.Coins {
			a.metrics.RecordEffect(string(eff.Kind), coin.Denom, coin.Amount)
		}
	}
	for _, d := range res.Dust {
		a.metrics.RecordDust(d.Stream, d.Amount.Denom, d.Amount.Amount)
	}
	for _, evt := range res.Events {
		a.logger.Debug("event", slog.String("module", evt.Module()), slog.String("type", evt.Type))
	}
	if a.sink == nil {
		return
	}
	for _, evt := range buffer.Pending() {
		a.sink.Emit(evt)
	}
}

func (a *App) logOutcome(env Env, name, outcome string, res *Result, err error) {
	attrs := []any{
		slog.String("operation", name),
		slog.String("outcome", outcome),
		slog.Uint64("height", env.Height),
		slog.String("sender", logging.ShortAddress(env.Sender)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		a.logger.Warn("operation rejected", attrs...)
		return
	}
	attrs = append(attrs, slog.String("digest", res.Digest.String()), slog.Int("effects", len(res.Effects)))
	a.logger.Info("operation executed", attrs...)
}

func (a *App) dispatch(m *modules, env Env, op Operation) (*Result, error) {
	switch op := op.(type) {
	case Lock:
		entry, err := m.escrow.Lock(env.Sender, env.Funds, op.AppID, op.Tier, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{Output: LockResult{Entry: entry}}, nil

	case Withdraw:
		amount, removed, err := m.escrow.Withdraw(env.Sender, env.Funds, op.Denom, op.Tier, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{
			Output:  WithdrawResult{Amount: amount, Removed: removed},
			Effects: payout(env.Sender, amount),
		}, nil

	case Transfer:
		moved, err := m.escrow.Transfer(env.Sender, op.Recipient, env.Funds, op.Denom, op.Tier)
		if err != nil {
			return nil, err
		}
		return &Result{Output: TransferResult{Moved: moved}}, nil

	case ConfigureEmission:
		em, err := m.governance.ConfigureEmission(env.Sender, env.Funds, op.AppID, op.TotalRewards, op.EmissionRate)
		if err != nil {
			return nil, err
		}
		return &Result{Output: EmissionResult{Emission: em}}, nil

	case RaiseProposal:
		p, err := m.governance.RaiseProposal(env.Sender, env.Funds, op.AppID, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{Output: ProposalResult{Proposal: p}}, nil

	case Vote:
		v, err := m.governance.Vote(env.Sender, env.Funds, governance.VoteRequest{
			AppID:           op.AppID,
			ProposalID:      op.ProposalID,
			Pairs:           op.Pairs,
			Ratios:          op.Ratios,
			GovernanceDenom: op.GovernanceDenom,
		}, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{Output: VoteResult{Vote: v}}, nil

	case DepositBribe:
		pool, err := m.governance.DepositBribe(env.Sender, env.Funds, op.ProposalID, op.Pair, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{Output: BribeResult{Pool: pool}}, nil

	case FinalizeEmission:
		if !env.Funds.IsZero() {
			return nil, coreerrors.ErrFundsNotAllowed
		}
		out, err := m.governance.FinalizeEmission(op.ProposalID, env.Time, env.Height)
		if err != nil {
			return nil, err
		}
		return finalizeEmissionResult(out), nil

	case FinalizeFoundation:
		out, err := m.governance.FinalizeFoundation(env.Funds, op.ProposalID)
		if err != nil {
			return nil, err
		}
		effects := make([]Effect, 0, len(out.Payouts))
		for _, p := range out.Payouts {
			effects = append(effects, Effect{
				Kind:      EffectFoundationPayout,
				AppID:     out.Proposal.AppID,
				Recipient: p.Recipient,
				Coins:     types.Coins{p.Amount.Clone()},
			})
		}
		return &Result{Output: FoundationResult{Proposal: out.Proposal, Payouts: out.Payouts}, Effects: effects}, nil

	case ClaimRewards:
		out, err := m.rewards.ClaimRewards(env.Sender, env.Funds, op.AppID, env.Time)
		if err != nil {
			return nil, err
		}
		return &Result{
			Output: ClaimResult{
				Cursor:    out.Cursor,
				Proposals: out.Proposals,
				Bribe:     out.Bribe,
				Surplus:   out.Surplus,
				Rebase:    out.Rebase,
			},
			Effects: payout(env.Sender, out.Payout...),
		}, nil

	case RegisterDelegate:
		info, err := m.delegation.RegisterDelegate(env.Sender, env.Funds, op.DelegatorFeeRatio, op.ProtocolFeeRatio, env.Time, env.Height)
		if err != nil {
			return nil, err
		}
		return &Result{Output: DelegateInfoResult{Info: info}}, nil

	case Delegate:
		d, err := m.delegation.Delegate(env.Sender, env.Funds, op.Delegate, op.Denom, op.Amount, env.Time, env.Height)
		if err != nil {
			return nil, err
		}
		return &Result{Output: DelegationResult{Delegation: d}}, nil

	case Undelegate:
		d, err := m.delegation.Undelegate(env.Sender, env.Funds, op.Delegate, env.Time, env.Height)
		if err != nil {
			return nil, err
		}
		return &Result{Output: DelegationResult{Delegation: d}}, nil

	case ClaimDelegated:
		out, err := m.delegation.ClaimDelegated(env.Sender, env.Funds, op.Delegate, op.AppID, op.ProposalID)
		if err != nil {
			return nil, err
		}
		effects := payout(env.Sender, out.User...)
		effects = append(effects, payout(out.Delegate, out.DelegateFee...)...)
		if out.ProtocolRecipient != "" {
			effects = append(effects, payout(out.ProtocolRecipient, out.Protocol...)...)
		}
		return &Result{
			Output: DelegatedClaimResult{
				Proposals:   out.Proposals,
				User:        out.User,
				DelegateFee: out.DelegateFee,
				Protocol:    out.Protocol,
			},
			Effects: effects,
		}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownOperation, op)
}

func finalizeEmissionResult(out *governance.EmissionOutcome) *Result {
	appID := out.Proposal.AppID
	res := &Result{
		Output: EmissionFinalizeResult{
			Proposal:    out.Proposal,
			Emission:    out.Emission,
			Rebase:      out.Rebase,
			Foundation:  out.Foundation,
			Allocations: out.Allocations,
			Surplus:     out.Surplus,
		},
	}
	if out.Emission.Sign() > 0 {
		res.Effects = append(res.Effects, Effect{Kind: EffectEmissionMint, AppID: appID, Coins: types.Coins{types.NewCoin(out.Denom, out.Emission)}})
	}
	if out.Rebase.Sign() > 0 {
		res.Effects = append(res.Effects, Effect{Kind: EffectRebaseMint, AppID: appID, Coins: types.Coins{types.NewCoin(out.Denom, out.Rebase)}})
	}
	if !out.Surplus.IsZero() {
		res.Effects = append(res.Effects, Effect{Kind: EffectSurplusTransfer, AppID: appID, Coins: types.Coins{out.Surplus.Clone()}})
	}
	if out.Dust != nil && out.Dust.Sign() > 0 {
		res.Dust = append(res.Dust, Dust{Stream: "emission", Amount: types.NewCoin(out.Denom, out.Dust)})
	}
	return res
}
